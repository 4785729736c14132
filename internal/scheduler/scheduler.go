// Package scheduler implements the Story Scheduler (spec §4.6): the
// four-timeline state machine that decides per broadcast tick whether to
// activate, advance, emit, or retire each timeline's story, and that
// simulates engagement for the escalation engine.
package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yates-Labs/deadwave/internal/djprofile"
	"github.com/Yates-Labs/deadwave/internal/freshness"
	"github.com/Yates-Labs/deadwave/internal/state"
	"github.com/Yates-Labs/deadwave/internal/story"
	"github.com/Yates-Labs/deadwave/internal/storyerr"
)

// Scheduler owns the tick algorithm. It reads and mutates a *state.State
// exclusively (the single-writer invariant of spec §5) and draws all
// randomness from an injected, seeded RNG.
type Scheduler struct {
	State     *state.State
	DJ        *djprofile.Validator
	Freshness *freshness.Tracker
	RNG       *RNG
	Log       zerolog.Logger

	mentions map[story.Timeline]*entityMentionWindow
	lastBeatCounter map[story.Timeline]int

	// OnCompletion, if set, is invoked with the full Story definition just
	// before a completed story is archived — the engine uses this hook to
	// drive the escalation engine, which needs the original acts to build
	// the expanded story for the next timeline up.
	OnCompletion func(t story.Timeline, def *story.Story, engagement float64, totalBroadcasts int)
}

// NewScheduler wires a state container, DJ validator, freshness tracker,
// and seeded RNG into a Scheduler.
func NewScheduler(st *state.State, djv *djprofile.Validator, fresh *freshness.Tracker, rng *RNG, log zerolog.Logger) *Scheduler {
	mentions := make(map[story.Timeline]*entityMentionWindow, len(story.TimelineOrder))
	lastBeat := make(map[story.Timeline]int, len(story.TimelineOrder))
	for _, t := range story.TimelineOrder {
		mentions[t] = &entityMentionWindow{}
		lastBeat[t] = -1
	}
	return &Scheduler{
		State:           st,
		DJ:              djv,
		Freshness:       fresh,
		RNG:             rng,
		Log:             log.With().Str("component", "scheduler").Logger(),
		mentions:        mentions,
		lastBeatCounter: lastBeat,
	}
}

// Tick runs the §4.6 per-tick algorithm across all four timelines, in the
// fixed daily→weekly→monthly→yearly order, against the given DJ profile
// and in-universe broadcast time. It returns the beats emitted this tick,
// already in stable emission order.
func (sch *Scheduler) Tick(dj djprofile.Profile, now time.Time) ([]story.StoryBeat, error) {
	if err := mustRNG(sch.RNG); err != nil {
		return nil, err
	}

	var beats []story.StoryBeat
	for _, t := range story.TimelineOrder {
		beat, err := sch.tickTimeline(t, dj, now)
		if err != nil {
			return nil, err
		}
		if beat != nil {
			beats = append(beats, *beat)
		}
	}

	sch.State.IncrementCounter()
	return beats, nil
}

// tickTimeline runs steps 1-8 of §4.6 for a single timeline.
func (sch *Scheduler) tickTimeline(t story.Timeline, dj djprofile.Profile, now time.Time) (*story.StoryBeat, error) {
	policy := Policies[t]

	// Step 1: cooldown.
	if sch.State.Cooldown(t) > 0 {
		sch.State.DecrementCooldown(t)
		return nil, nil
	}

	// Step 2: activation.
	if sch.State.Active(t) == nil {
		if _, err := sch.State.Activate(t, now); err != nil {
			return nil, err
		}
	}
	active := sch.State.Active(t)
	if active == nil {
		return nil, nil // pool was empty
	}
	def := sch.State.ActiveStoryDef(t)
	if def == nil {
		return nil, storyerr.New(storyerr.KindInvariantViolation, "active story "+active.StoryID+" has no backing definition")
	}

	// Step 8: abandonment check runs every tick regardless of emission.
	if sch.checkAbandonment(t, active, policy, now) {
		return nil, nil
	}

	// Step 3: minimum gap.
	counter := sch.State.GlobalBroadcastCounter()
	last := sch.lastBeatCounter[t]
	gapOK := last < 0 || counter-last >= policy.MinGap

	if !gapOK {
		sch.advanceAfterSkip(t, active, def, policy)
		return nil, nil
	}

	// Step 4: Bernoulli draw modulated by freshness.
	act := currentAct(def, active)
	candidate := freshness.Candidate{
		ID:       def.ID,
		Subjects: act.Entities,
		Tone:     string(act.Tone),
		Group:    string(def.ContentType),
	}
	freshScore := sch.Freshness.Score(candidate)
	mult := freshness.Multiplier(freshScore)
	p := policy.BaseInclusionP * mult

	if !sch.RNG.Bernoulli(p) {
		sch.advanceAfterSkip(t, active, def, policy)
		return nil, nil
	}

	// Step 5-6: act selection and emission.
	beat, framing, err := sch.emit(t, def, active, dj)
	if err != nil {
		if storyerr.Is(err, storyerr.KindTierForbidden) || storyerr.Is(err, storyerr.KindTemporalBoundary) {
			sch.Log.Info().Str("story_id", def.ID).Err(err).Msg("DJ validator suppressed emission, abandoning story")
			if abandonErr := sch.State.AbandonActive(t, def.ID, now); abandonErr != nil {
				return nil, abandonErr
			}
			return nil, nil
		}
		return nil, err
	}
	_ = framing

	sch.lastBeatCounter[t] = counter
	primaryEntity := primaryEntityOf(act)
	sch.mentions[t].record(primaryEntity)
	sch.Freshness.RecordUse(def.ID, act.Entities, string(act.Tone), string(def.ContentType))

	// Step 6-7: advance decision after a successful emission.
	if err := sch.advanceAfterEmit(t, def, active, policy, now); err != nil {
		return nil, err
	}

	return beat, nil
}

// currentAct returns the act the active story is presently on.
func currentAct(def *story.Story, active *story.ActiveStory) story.StoryAct {
	idx := active.CurrentActIndex - 1
	if idx < 0 || idx >= len(def.Acts) {
		idx = 0
	}
	return def.Acts[idx]
}

func primaryEntityOf(act story.StoryAct) string {
	if len(act.Entities) == 0 {
		return ""
	}
	return act.Entities[0]
}

// emit builds the StoryBeat for the active story's current act, including
// the DJ framing. A validator failure ineligible for any framing
// propagates to the caller.
func (sch *Scheduler) emit(t story.Timeline, def *story.Story, active *story.ActiveStory, dj djprofile.Profile) (*story.StoryBeat, story.Framing, error) {
	act := currentAct(def, active)

	framing, verr := sch.DJ.Validate(def, &dj)
	if verr != nil {
		return nil, "", verr
	}

	beat := &story.StoryBeat{
		StoryID:   def.ID,
		ActIndex:  act.Index,
		ActType:   act.Type,
		Summary:   act.Summary,
		Entities:  act.Entities,
		Themes:    act.Themes,
		IntroHint: introHint(act.Type),
		OutroHint: outroHint(act.Type),
		Framing:   framing,
		Timeline:  t,
	}
	return beat, framing, nil
}

// advanceAfterSkip applies the engagement stagnation penalty when a
// timeline's minimum-per-act count has already been reached but this
// tick produced no emission (gap suppression or a failed Bernoulli
// draw).
func (sch *Scheduler) advanceAfterSkip(t story.Timeline, active *story.ActiveStory, def *story.Story, policy Policy) {
	if active.BroadcastsInCurrentAct < policy.MinBroadcastsPerAct {
		return
	}
	_ = sch.State.MutateActive(t, len(def.Acts), func(a *story.ActiveStory) {
		a.EngagementScore = clampUnit(a.EngagementScore - engagementStagnationPenalty)
	})
}

// advanceAfterEmit applies step 6-7: increment the per-act broadcast
// counter, decide whether to advance (or force-advance), and complete the
// story if its resolution act has been sufficiently broadcast.
func (sch *Scheduler) advanceAfterEmit(t story.Timeline, def *story.Story, active *story.ActiveStory, policy Policy, now time.Time) error {
	act := currentAct(def, active)
	isLastAct := active.CurrentActIndex == len(def.Acts)

	var shouldAdvance, shouldComplete bool
	err := sch.State.MutateActive(t, len(def.Acts), func(a *story.ActiveStory) {
		a.BroadcastsInCurrentAct++
		a.TotalBroadcasts++
		a.EngagementScore = clampUnit(a.EngagementScore + engagementEmissionGain*noveltyFor(sch.mentions[t], act))

		if a.BroadcastsInCurrentAct < policy.MinBroadcastsPerAct {
			shouldAdvance = false
		} else if a.BroadcastsInCurrentAct >= policy.MaxBroadcastsPerAct {
			shouldAdvance = true
		} else {
			shouldAdvance = sch.RNG.Bernoulli(policy.ActAdvanceP)
		}

		if !shouldAdvance {
			return
		}

		if act.Type == story.ActResolution || (isLastAct && a.BroadcastsInCurrentAct >= policy.MinBroadcastsPerAct) {
			shouldComplete = true
			a.EngagementScore = clampUnit(a.EngagementScore + engagementCompletionGain)
			return
		}

		a.CurrentActIndex++
		a.BroadcastsInCurrentAct = 0
		a.Progression = float64(a.CurrentActIndex) / float64(len(def.Acts))
		a.EngagementScore = clampUnit(a.EngagementScore + engagementAdvanceGain)
	})
	if err != nil {
		return err
	}

	if shouldComplete {
		if sch.OnCompletion != nil {
			if final := sch.State.Active(t); final != nil {
				sch.OnCompletion(t, def, final.EngagementScore, final.TotalBroadcasts)
			}
		}
		return sch.State.CompleteActive(t, def.ID, now)
	}
	return nil
}

func noveltyFor(w *entityMentionWindow, act story.StoryAct) float64 {
	return w.novelty(primaryEntityOf(act))
}

// checkAbandonment implements step 8: a story exceeding 2x its timeline's
// expected duration without reaching resolution is abandoned.
func (sch *Scheduler) checkAbandonment(t story.Timeline, active *story.ActiveStory, policy Policy, now time.Time) bool {
	if active.TotalBroadcasts <= 2*policy.ExpectedDuration() {
		return false
	}
	def := sch.State.ActiveStoryDef(t)
	title := active.StoryID
	if def != nil {
		title = def.ID
	}
	if err := sch.State.AbandonActive(t, title, now); err != nil {
		sch.Log.Error().Err(err).Str("timeline", string(t)).Msg("failed to abandon overdue story")
		return false
	}
	return true
}

// ForceComplete is the admin entry point (§4.6): marks the active story
// resolved immediately and applies the completion cooldown, deterministically.
func (sch *Scheduler) ForceComplete(t story.Timeline, now time.Time) error {
	def := sch.State.ActiveStoryDef(t)
	if def == nil {
		return storyerr.New(storyerr.KindInvariantViolation, fmt.Sprintf("no active story on timeline %s to force-complete", t))
	}
	return sch.State.CompleteActive(t, def.ID, now)
}
