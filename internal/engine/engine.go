// Package engine wires the Story Extractor, Lore Validator, Narrative
// Weight Scorer, Timeline/DJ Validator, Story Scheduler, Story State
// Manager, and Weaver into the single Tick() entry point the surrounding
// broadcast pipeline calls once per broadcast.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yates-Labs/deadwave/internal/canon"
	"github.com/Yates-Labs/deadwave/internal/djprofile"
	"github.com/Yates-Labs/deadwave/internal/extractor"
	"github.com/Yates-Labs/deadwave/internal/freshness"
	"github.com/Yates-Labs/deadwave/internal/rag"
	"github.com/Yates-Labs/deadwave/internal/scheduler"
	"github.com/Yates-Labs/deadwave/internal/state"
	"github.com/Yates-Labs/deadwave/internal/story"
	"github.com/Yates-Labs/deadwave/internal/weaver"
)

// Engine is the top-level orchestrator. One Engine serves one on-air DJ
// per tick; a multi-DJ station runs one Engine per DJ sharing nothing but
// the underlying vector store.
type Engine struct {
	Store      rag.VectorStore
	CanonTables canon.Tables
	Canon      *canon.Validator
	Extractor  *extractor.Extractor
	DJValidator *djprofile.Validator
	Roster     djprofile.Roster
	Freshness  *freshness.Tracker
	State      *state.State
	Scheduler  *scheduler.Scheduler
	Log        zerolog.Logger
}

// Config bundles the dependencies New wires together.
type Config struct {
	Store    rag.VectorStore
	Embedder rag.Embedder // optional; nil disables the extractor's hybrid search
	Tables   canon.Tables
	Roster   djprofile.Roster
	Seed     int64
	Now      func() time.Time
	Log      zerolog.Logger
}

// New constructs an Engine with all components wired over cfg.Tables and
// a seeded scheduler RNG.
func New(cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	fresh := freshness.NewTracker(now)
	canonValidator := canon.NewValidator(cfg.Tables)
	djValidator := djprofile.NewValidator()
	ext := extractor.NewExtractor(cfg.Store, cfg.Embedder, cfg.Tables, fresh, cfg.Log)
	st := state.New(cfg.Log)
	sch := scheduler.NewScheduler(st, djValidator, fresh, scheduler.NewRNG(cfg.Seed), cfg.Log)

	e := &Engine{
		Store:       cfg.Store,
		CanonTables: cfg.Tables,
		Canon:       canonValidator,
		Extractor:   ext,
		DJValidator: djValidator,
		Roster:      cfg.Roster,
		Freshness:   fresh,
		State:       st,
		Scheduler:   sch,
		Log:         cfg.Log.With().Str("component", "engine").Logger(),
	}

	sch.OnCompletion = e.handleCompletion
	return e
}

// RefreshPools runs the extractor against the current vector store for
// the given DJ, validates against canon, checks DJ compatibility, and
// admits passing candidates into their assigned timeline's pool, ranked
// by (narrative_weight desc, then freshness desc) per the Open Question
// default.
func (e *Engine) RefreshPools(ctx context.Context, dj djprofile.Profile, limit int) error {
	quests, err := e.Extractor.ExtractQuests(ctx, dj, limit)
	if err != nil {
		return err
	}
	events, err := e.Extractor.ExtractEvents(ctx, dj, limit)
	if err != nil {
		return err
	}

	candidates := append(quests, events...)
	return e.admit(candidates, dj)
}

// admit runs canon + DJ validation on each candidate, assigns the
// compatible-DJ set, ranks, and inserts survivors into their pools.
func (e *Engine) admit(candidates []story.Story, dj djprofile.Profile) error {
	ranked := make(map[story.Timeline][]story.Story)

	for _, s := range candidates {
		if failures := e.Canon.Validate(&s); len(failures) > 0 {
			e.Log.Info().Str("story_id", s.ID).Int("failures", len(failures)).Msg("discarding story failing canon validation")
			continue
		}

		if _, verr := e.DJValidator.Validate(&s, &dj); verr != nil {
			e.Log.Info().Str("story_id", s.ID).Err(verr).Msg("discarding story no DJ may narrate")
			continue
		}
		s.CompatibleDJs = append(s.CompatibleDJs, dj.ID)
		s.KnowledgeTier = inferTier(&s)

		ranked[s.Timeline] = append(ranked[s.Timeline], s)
	}

	for t, stories := range ranked {
		rankByWeightThenFreshness(stories, e.Freshness)
		for _, s := range stories {
			if err := e.State.AddToPool(t, s); err != nil {
				e.Log.Warn().Str("story_id", s.ID).Err(err).Msg("failed to admit story to pool")
			}
		}
	}
	return nil
}

// inferTier assigns a knowledge tier from the story's faction count: a
// story naming zero factions is common knowledge, one naming a single
// faction is regional, and one naming two or more is restricted. A tier
// already set on the story is kept as is.
func inferTier(s *story.Story) story.KnowledgeTier {
	if s.KnowledgeTier != "" {
		return s.KnowledgeTier
	}
	switch {
	case len(s.Factions) == 0:
		return story.TierCommon
	case len(s.Factions) == 1:
		return story.TierRegional
	default:
		return story.TierRestricted
	}
}

// rankByWeightThenFreshness orders candidates head-first by the Open
// Question default: narrative_weight desc, then freshness desc.
func rankByWeightThenFreshness(stories []story.Story, fresh *freshness.Tracker) {
	scores := make(map[string]float64, len(stories))
	for _, s := range stories {
		scores[s.ID] = fresh.Score(freshness.Candidate{ID: s.ID, Subjects: s.Factions, Group: string(s.ContentType)})
	}
	sortStories(stories, func(a, b story.Story) bool {
		if a.NarrativeWeight != b.NarrativeWeight {
			return a.NarrativeWeight > b.NarrativeWeight
		}
		return scores[a.ID] > scores[b.ID]
	})
}

func sortStories(stories []story.Story, less func(a, b story.Story) bool) {
	for i := 1; i < len(stories); i++ {
		for j := i; j > 0 && less(stories[j], stories[j-1]); j-- {
			stories[j], stories[j-1] = stories[j-1], stories[j]
		}
	}
}

// Tick runs one broadcast tick: the scheduler advances all four
// timelines, and the Weaver composes the resulting beats into a Packet.
func (e *Engine) Tick(dj djprofile.Profile, now time.Time, emergencyPreempt bool) (weaver.Packet, error) {
	beats, err := e.Scheduler.Tick(dj, now)
	if err != nil {
		return weaver.Packet{}, err
	}
	return weaver.Weave(beats, e.State.Archive(), emergencyPreempt), nil
}

// handleCompletion is the escalation engine (spec §4.8/open questions):
// invoked by the scheduler just before a story is archived as completed,
// it checks the engagement/broadcast thresholds and, if cleared, re-emits
// an expanded Story into the next timeline up.
func (e *Engine) handleCompletion(t story.Timeline, def *story.Story, engagement float64, totalBroadcasts int) {
	threshold, ok := scheduler.EligibleEscalation(t, engagement, totalBroadcasts)
	if !ok {
		return
	}

	expanded := buildEscalatedStory(def, threshold.To)
	expanded.NarrativeWeight = 0 // recomputed below by the extractor's scorer before re-admission.

	if err := e.State.RecordEscalation(story.EscalationRecord{
		From:      t,
		To:        threshold.To,
		StoryID:   def.ID,
		Timestamp: time.Now(),
	}); err != nil {
		e.Log.Error().Err(err).Str("story_id", def.ID).Msg("failed to record escalation")
		return
	}

	expanded.NarrativeWeight = e.Extractor.Scorer.Score(&expanded)
	if expanded.NarrativeWeight < story.WeightFloor[threshold.To] {
		e.Log.Info().Str("story_id", expanded.ID).Float64("weight", expanded.NarrativeWeight).Msg("escalated story discarded below target floor")
		return
	}

	if err := e.State.AddToPool(threshold.To, expanded); err != nil {
		e.Log.Warn().Str("story_id", expanded.ID).Err(err).Msg("failed to admit escalated story")
	}
}

// buildEscalatedStory derives a 3-4 act expanded Story from the original,
// referencing its lineage via Provenance, for the next timeline up.
func buildEscalatedStory(original *story.Story, to story.Timeline) story.Story {
	acts := original.Acts
	if len(acts) > 4 {
		acts = acts[:4]
	}
	for len(acts) < 3 {
		acts = append(acts, acts[len(acts)-1])
	}
	for i := range acts {
		acts[i].Index = i + 1
		acts[i].BroadcastCount = 0
	}

	return story.Story{
		ID:            fmt.Sprintf("%s-escalated-%s", original.ID, to),
		ContentType:   original.ContentType,
		Timeline:      to,
		Status:        story.StatusDormant,
		Era:           original.Era,
		YearMin:       original.YearMin,
		YearMax:       original.YearMax,
		Region:        original.Region,
		Factions:      original.Factions,
		Locations:     original.Locations,
		Characters:    original.Characters,
		Themes:        original.Themes,
		KnowledgeTier: original.KnowledgeTier,
		CompatibleDJs: original.CompatibleDJs,
		Acts:          acts,
		Provenance:    append(append([]string{}, original.Provenance...), original.ID),
	}
}
