// Package state implements the Story State Manager (spec §4.5): the typed
// container holding each timeline's pool, active slot, and cooldown, plus
// the completed/abandoned archives and escalation log, with atomic
// snapshot persistence to disk.
package state

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yates-Labs/deadwave/internal/story"
	"github.com/Yates-Labs/deadwave/internal/storyerr"
)

// CurrentSchemaVersion is the snapshot format this build writes and reads.
const CurrentSchemaVersion = 1

// CooldownTable is the §4.6 completion-cooldown-by-timeline policy.
var CooldownTable = map[story.Timeline]int{
	story.TimelineDaily:   2,
	story.TimelineWeekly:  5,
	story.TimelineMonthly: 10,
	story.TimelineYearly:  20,
}

// CompletedRecord summarizes a story moved to the completed archive.
type CompletedRecord struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Timeline        story.Timeline `json:"timeline"`
	TotalBroadcasts int            `json:"total_broadcasts"`
	EngagementScore float64        `json:"engagement_score"`
	ArchivedAt      time.Time      `json:"archived_at"`
	Entities        []string       `json:"entities,omitempty"`
	Themes          []string       `json:"themes,omitempty"`
}

// AbandonedRecord summarizes a story moved to the abandoned archive.
type AbandonedRecord struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Timeline        story.Timeline `json:"timeline"`
	TotalBroadcasts int       `json:"total_broadcasts"`
	EngagementScore float64   `json:"engagement_score"`
	ArchivedAt      time.Time `json:"archived_at"`
}

// Archive holds the append-only completed/abandoned history.
type Archive struct {
	Completed []CompletedRecord `json:"completed"`
	Abandoned []AbandonedRecord `json:"abandoned"`
}

// Snapshot is the full on-disk representation of a StoryState.
type Snapshot struct {
	SchemaVersion          int                                    `json:"schema_version"`
	GlobalBroadcastCounter int                                    `json:"global_broadcast_counter"`
	Pools                  map[story.Timeline][]story.Story        `json:"pools"`
	Active                 map[story.Timeline]*story.ActiveStory   `json:"active"`
	ActiveDef              map[story.Timeline]*story.Story         `json:"active_story_def"`
	Cooldowns              map[story.Timeline]int                  `json:"cooldowns"`
	Archive                Archive                                  `json:"archive"`
	EscalationLog          []story.EscalationRecord                `json:"escalation_log"`
}

// State is the single-writer container the scheduler owns. It is safe for
// concurrent reads from the Weaver via its read-only accessors, guarded by
// an internal mutex; the tick loop itself is still strictly sequential
// (spec §5), the mutex exists only to let read-only views be taken safely.
type State struct {
	mu sync.RWMutex

	schemaVersion int
	counter       int

	pools       map[story.Timeline][]story.Story
	active      map[story.Timeline]*story.ActiveStory
	activeDef   map[story.Timeline]*story.Story // the immutable Story definition behind each active slot
	cooldowns   map[story.Timeline]int
	archive     Archive
	escalations []story.EscalationRecord

	// location maps every story id that has entered a pool, an active
	// slot or the archive to the structure holding it, enforcing the "at
	// most one structure at a time" invariant cheaply.
	location map[string]string

	log zerolog.Logger
}

// New constructs an empty State for all four timelines.
func New(log zerolog.Logger) *State {
	s := &State{
		schemaVersion: CurrentSchemaVersion,
		pools:         make(map[story.Timeline][]story.Story),
		active:        make(map[story.Timeline]*story.ActiveStory),
		activeDef:     make(map[story.Timeline]*story.Story),
		cooldowns:     make(map[story.Timeline]int),
		location:      make(map[string]string),
		log:           log.With().Str("component", "state").Logger(),
	}
	for _, t := range story.TimelineOrder {
		s.pools[t] = nil
		s.cooldowns[t] = 0
	}
	return s
}

// GlobalBroadcastCounter returns the current tick counter.
func (s *State) GlobalBroadcastCounter() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counter
}

// IncrementCounter advances the global broadcast counter by exactly one,
// called once per completed tick.
func (s *State) IncrementCounter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
}

// Cooldown returns the broadcasts remaining before a timeline may activate
// a new story.
func (s *State) Cooldown(t story.Timeline) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cooldowns[t]
}

// DecrementCooldown reduces a timeline's cooldown by one, floored at zero.
func (s *State) DecrementCooldown(t story.Timeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cooldowns[t] > 0 {
		s.cooldowns[t]--
	}
}

// Pool returns a read-only copy of a timeline's pool, head first.
func (s *State) Pool(t story.Timeline) []story.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]story.Story, len(s.pools[t]))
	copy(out, s.pools[t])
	return out
}

// Active returns a copy of the timeline's active story, or nil.
func (s *State) Active(t story.Timeline) *story.ActiveStory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := s.active[t]
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

// Archive returns a read-only copy of the archive.
func (s *State) Archive() Archive {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Archive{
		Completed: append([]CompletedRecord{}, s.archive.Completed...),
		Abandoned: append([]AbandonedRecord{}, s.archive.Abandoned...),
	}
}

// AddToPool appends a story to the given timeline's pool tail. Duplicates
// by story id are silently ignored (append is idempotent). Fails with
// InvariantViolation if the story is already located elsewhere, if its DJ
// compatibility set is empty, or if it fails core invariants.
func (s *State) AddToPool(t story.Timeline, st story.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if loc, ok := s.location[st.ID]; ok {
		if loc == "pool:"+string(t) {
			return nil // already present, append is a no-op
		}
		return storyerr.New(storyerr.KindInvariantViolation,
			"story "+st.ID+" already resides in "+loc)
	}

	if err := story.ValidateForPool(&st, story.WeightFloor[t]); err != nil {
		return err
	}

	s.pools[t] = append(s.pools[t], st)
	s.location[st.ID] = "pool:" + string(t)
	return nil
}

// Activate pops the pool head into the active slot, if the timeline is
// currently idle and off cooldown. Returns nil, nil if nothing is
// eligible to activate.
func (s *State) Activate(t story.Timeline, now time.Time) (*story.ActiveStory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cooldowns[t] != 0 {
		return nil, nil
	}
	if s.active[t] != nil {
		return nil, nil
	}
	if len(s.pools[t]) == 0 {
		return nil, nil
	}

	head := s.pools[t][0]
	s.pools[t] = s.pools[t][1:]

	as := &story.ActiveStory{
		StoryID:         head.ID,
		Timeline:        t,
		CurrentActIndex: 1,
		Progression:     1.0 / float64(len(head.Acts)),
		EngagementScore: 0.5,
		ActivatedAt:     now,
	}
	if err := story.ValidateActiveStory(as, len(head.Acts)); err != nil {
		return nil, err
	}

	headCopy := head
	s.active[t] = as
	s.activeDef[t] = &headCopy
	s.location[head.ID] = "active:" + string(t)
	return as, nil
}

// ActiveStoryDef returns a copy of the immutable Story definition behind
// the timeline's active slot (acts, DJ compatibility, weight), or nil if
// the timeline is idle. The mutable runtime progress lives in Active.
func (s *State) ActiveStoryDef(t story.Timeline) *story.Story {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def := s.activeDef[t]
	if def == nil {
		return nil
	}
	cp := *def
	return &cp
}

// CompleteActive moves the active story to the completed archive with the
// given story title, sets the timeline's cooldown, and clears the slot.
func (s *State) CompleteActive(t story.Timeline, title string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retireActive(t, title, now, true)
}

// AbandonActive moves the active story to the abandoned archive and sets
// cooldown, clearing the slot.
func (s *State) AbandonActive(t story.Timeline, title string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retireActive(t, title, now, false)
}

// retireActive is the shared completion/abandonment path. Caller holds
// the lock.
func (s *State) retireActive(t story.Timeline, title string, now time.Time, completed bool) error {
	as := s.active[t]
	if as == nil {
		return storyerr.New(storyerr.KindInvariantViolation, "no active story on timeline "+string(t))
	}

	if completed {
		def := s.activeDef[t]
		var entities, themes []string
		if def != nil {
			entities = subjectsOf(def)
			themes = append([]string{}, def.Themes...)
		}
		s.archive.Completed = append(s.archive.Completed, CompletedRecord{
			ID:              as.StoryID,
			Title:           title,
			Timeline:        t,
			TotalBroadcasts: as.TotalBroadcasts,
			EngagementScore: as.EngagementScore,
			ArchivedAt:      now,
			Entities:        entities,
			Themes:          themes,
		})
	} else {
		s.archive.Abandoned = append(s.archive.Abandoned, AbandonedRecord{
			ID:              as.StoryID,
			Title:           title,
			Timeline:        t,
			TotalBroadcasts: as.TotalBroadcasts,
			EngagementScore: as.EngagementScore,
			ArchivedAt:      now,
		})
	}

	delete(s.location, as.StoryID)
	s.location[as.StoryID] = "archive"
	s.active[t] = nil
	s.activeDef[t] = nil
	s.cooldowns[t] = CooldownTable[t]
	return nil
}

// MutateActive runs fn against the timeline's active story under the
// write lock, so the scheduler can apply multi-field updates (act
// advance, broadcast counters, engagement) as a single atomic step. fn
// must not retain the pointer past its call.
func (s *State) MutateActive(t story.Timeline, totalActs int, fn func(*story.ActiveStory)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	as := s.active[t]
	if as == nil {
		return storyerr.New(storyerr.KindInvariantViolation, "no active story on timeline "+string(t))
	}
	fn(as)
	return story.ValidateActiveStory(as, totalActs)
}

// RecordEscalation appends an escalation record to the log.
func (s *State) RecordEscalation(rec story.EscalationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if story.TimelineRank(rec.From) >= story.TimelineRank(rec.To) {
		return storyerr.New(storyerr.KindInvariantViolation,
			"escalation from "+string(rec.From)+" must be strictly lower than to "+string(rec.To))
	}
	s.escalations = append(s.escalations, rec)
	return nil
}

// EscalationLog returns a read-only copy of the escalation history.
func (s *State) EscalationLog() []story.EscalationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]story.EscalationRecord{}, s.escalations...)
}

// subjectsOf dedups the factions named by a story definition and every
// entity named by its acts, so completed-story callbacks can be matched
// against what the story was actually about rather than its title.
func subjectsOf(def *story.Story) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}
	for _, f := range def.Factions {
		add(f)
	}
	for _, act := range def.Acts {
		for _, e := range act.Entities {
			add(e)
		}
	}
	return out
}
