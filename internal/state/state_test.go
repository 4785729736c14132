package state

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yates-Labs/deadwave/internal/story"
	"github.com/Yates-Labs/deadwave/internal/storyerr"
)

func poolableStory(id string, weight float64) story.Story {
	return story.Story{
		ID:              id,
		ContentType:     story.ContentTypeQuest,
		Timeline:        story.TimelineDaily,
		NarrativeWeight: weight,
		CompatibleDJs:   []string{"dj-test"},
		Factions:        []string{"ncr"},
		Themes:          []string{"betrayal"},
		Acts: []story.StoryAct{
			{Index: 1, Type: story.ActSetup, ConflictLevel: 0.2, Entities: []string{"ncr", "courier"}},
			{Index: 2, Type: story.ActResolution, ConflictLevel: 0.6, Entities: []string{"legion"}},
		},
	}
}

func newTestState() *State {
	return New(zerolog.Nop())
}

func TestAddToPool_AppendsAndIsIdempotent(t *testing.T) {
	s := newTestState()
	st := poolableStory("s1", 3.0)

	if err := s.AddToPool(story.TimelineDaily, st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddToPool(story.TimelineDaily, st); err != nil {
		t.Fatalf("expected re-adding the same story to be a no-op, got %v", err)
	}
	if got := len(s.Pool(story.TimelineDaily)); got != 1 {
		t.Fatalf("expected pool length 1, got %d", got)
	}
}

func TestAddToPool_RejectsEmptyCompatibleDJs(t *testing.T) {
	s := newTestState()
	st := poolableStory("s1", 3.0)
	st.CompatibleDJs = nil

	err := s.AddToPool(story.TimelineDaily, st)
	if err == nil || !storyerr.Is(err, storyerr.KindInvariantViolation) {
		t.Fatalf("expected KindInvariantViolation, got %v", err)
	}
}

func TestAddToPool_RejectsDuplicateLocation(t *testing.T) {
	s := newTestState()
	st := poolableStory("s1", 3.0)

	if err := s.AddToPool(story.TimelineDaily, st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddToPool(story.TimelineWeekly, st); err == nil {
		t.Fatal("expected error adding the same story id to a different timeline's pool")
	}
}

func TestActivate_PopsHeadIntoActiveSlot(t *testing.T) {
	s := newTestState()
	st := poolableStory("s1", 3.0)
	_ = s.AddToPool(story.TimelineDaily, st)

	now := time.Date(2287, 10, 23, 12, 0, 0, 0, time.UTC)
	as, err := s.Activate(story.TimelineDaily, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if as == nil || as.StoryID != "s1" {
		t.Fatalf("expected active story s1, got %+v", as)
	}
	if len(s.Pool(story.TimelineDaily)) != 0 {
		t.Error("expected pool to be empty after activation")
	}
	if def := s.ActiveStoryDef(story.TimelineDaily); def == nil || def.ID != "s1" {
		t.Errorf("expected ActiveStoryDef to return the story, got %+v", def)
	}
}

func TestActivate_NoopWhenOnCooldown(t *testing.T) {
	s := newTestState()
	st := poolableStory("s1", 3.0)
	_ = s.AddToPool(story.TimelineDaily, st)

	s.cooldowns[story.TimelineDaily] = 2
	as, err := s.Activate(story.TimelineDaily, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if as != nil {
		t.Error("expected nil activation while on cooldown")
	}
}

func TestCompleteActive_ArchivesAndSetsCooldown(t *testing.T) {
	s := newTestState()
	st := poolableStory("s1", 3.0)
	_ = s.AddToPool(story.TimelineDaily, st)
	now := time.Date(2287, 10, 23, 12, 0, 0, 0, time.UTC)
	_, _ = s.Activate(story.TimelineDaily, now)

	if err := s.CompleteActive(story.TimelineDaily, "The Siege", now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a := s.Active(story.TimelineDaily); a != nil {
		t.Error("expected active slot to be cleared")
	}
	if got := s.Cooldown(story.TimelineDaily); got != CooldownTable[story.TimelineDaily] {
		t.Errorf("cooldown = %d, want %d", got, CooldownTable[story.TimelineDaily])
	}
	archive := s.Archive()
	if len(archive.Completed) != 1 || archive.Completed[0].ID != "s1" {
		t.Errorf("expected s1 in completed archive, got %+v", archive.Completed)
	}

	rec := archive.Completed[0]
	if len(rec.Themes) != 1 || rec.Themes[0] != "betrayal" {
		t.Errorf("expected Themes to carry the story's themes, got %+v", rec.Themes)
	}
	wantEntities := map[string]bool{"ncr": true, "courier": true, "legion": true}
	if len(rec.Entities) != len(wantEntities) {
		t.Fatalf("expected %d entities, got %+v", len(wantEntities), rec.Entities)
	}
	for _, e := range rec.Entities {
		if !wantEntities[e] {
			t.Errorf("unexpected entity %q in %+v", e, rec.Entities)
		}
	}
}

func TestRetireActive_NoActiveStoryErrors(t *testing.T) {
	s := newTestState()
	if err := s.CompleteActive(story.TimelineDaily, "x", time.Now()); err == nil {
		t.Fatal("expected error completing an idle timeline")
	}
}

func TestMutateActive_AppliesFnUnderLock(t *testing.T) {
	s := newTestState()
	st := poolableStory("s1", 3.0)
	_ = s.AddToPool(story.TimelineDaily, st)
	_, _ = s.Activate(story.TimelineDaily, time.Now())

	err := s.MutateActive(story.TimelineDaily, len(st.Acts), func(as *story.ActiveStory) {
		as.TotalBroadcasts++
		as.EngagementScore = 0.7
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	active := s.Active(story.TimelineDaily)
	if active.TotalBroadcasts != 1 || active.EngagementScore != 0.7 {
		t.Errorf("unexpected active state after mutation: %+v", active)
	}
}

func TestRecordEscalation_RejectsNonIncreasingRank(t *testing.T) {
	s := newTestState()
	rec := story.EscalationRecord{From: story.TimelineWeekly, To: story.TimelineDaily}
	if err := s.RecordEscalation(rec); err == nil {
		t.Fatal("expected error for an escalation that doesn't increase timeline rank")
	}
}

func TestRecordEscalation_AppendsValidRecord(t *testing.T) {
	s := newTestState()
	rec := story.EscalationRecord{From: story.TimelineDaily, To: story.TimelineWeekly}
	if err := s.RecordEscalation(rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.EscalationLog()) != 1 {
		t.Fatalf("expected 1 escalation record, got %d", len(s.EscalationLog()))
	}
}

func TestDecrementCooldown_FloorsAtZero(t *testing.T) {
	s := newTestState()
	s.cooldowns[story.TimelineDaily] = 1
	s.DecrementCooldown(story.TimelineDaily)
	if got := s.Cooldown(story.TimelineDaily); got != 0 {
		t.Errorf("cooldown = %d, want 0", got)
	}
	s.DecrementCooldown(story.TimelineDaily)
	if got := s.Cooldown(story.TimelineDaily); got != 0 {
		t.Errorf("cooldown floored at 0, got %d", got)
	}
}
