package scheduler

import (
	"testing"

	"github.com/Yates-Labs/deadwave/internal/story"
)

func TestEntityMentionWindow_NoveltyDecaysWithRepeats(t *testing.T) {
	w := &entityMentionWindow{}
	if got := w.novelty("ncr"); got != 1.0 {
		t.Errorf("novelty() with no history = %f, want 1.0", got)
	}
	for i := 0; i < 5; i++ {
		w.record("ncr")
	}
	if got := w.novelty("ncr"); got != 0.0 {
		t.Errorf("novelty() after 5 mentions = %f, want 0.0", got)
	}
}

func TestEntityMentionWindow_CapsAtWindowSize(t *testing.T) {
	w := &entityMentionWindow{}
	for i := 0; i < mentionWindowSize+5; i++ {
		w.record("ncr")
	}
	if len(w.recent) != mentionWindowSize {
		t.Errorf("recent window length = %d, want %d", len(w.recent), mentionWindowSize)
	}
}

func TestClampUnit_Bounds(t *testing.T) {
	if clampUnit(-0.5) != 0 {
		t.Error("clampUnit(-0.5) should floor at 0")
	}
	if clampUnit(1.5) != 1 {
		t.Error("clampUnit(1.5) should cap at 1")
	}
	if clampUnit(0.5) != 0.5 {
		t.Error("clampUnit(0.5) should pass through unchanged")
	}
}

func TestEligibleEscalation_ClearsThreshold(t *testing.T) {
	th, ok := EligibleEscalation(story.TimelineDaily, 0.8, 5)
	if !ok {
		t.Fatal("expected daily->weekly escalation to be eligible")
	}
	if th.To != story.TimelineWeekly {
		t.Errorf("To = %s, want weekly", th.To)
	}
}

func TestEligibleEscalation_BelowThresholdRejected(t *testing.T) {
	_, ok := EligibleEscalation(story.TimelineDaily, 0.5, 1)
	if ok {
		t.Fatal("expected low engagement/broadcast count to be ineligible")
	}
}

func TestEligibleEscalation_NoRowForYearly(t *testing.T) {
	_, ok := EligibleEscalation(story.TimelineYearly, 1.0, 1000)
	if ok {
		t.Fatal("yearly has no escalation target, expected ineligible")
	}
}
