package scheduler

import (
	"testing"

	"github.com/Yates-Labs/deadwave/internal/story"
)

func TestExpectedDuration_DailyPolicy(t *testing.T) {
	p := Policies[story.TimelineDaily]
	// mid = (1+3)/2 = 2, times a typical 4-act story = 8
	if got := p.ExpectedDuration(); got != 8 {
		t.Errorf("ExpectedDuration() = %d, want 8", got)
	}
}

func TestExpectedDuration_YearlyPolicy(t *testing.T) {
	p := Policies[story.TimelineYearly]
	// mid = (5+30)/2 = 17, times 4 = 68
	if got := p.ExpectedDuration(); got != 68 {
		t.Errorf("ExpectedDuration() = %d, want 68", got)
	}
}

func TestPolicies_CoversAllTimelines(t *testing.T) {
	for _, tl := range story.TimelineOrder {
		if _, ok := Policies[tl]; !ok {
			t.Errorf("missing policy for timeline %s", tl)
		}
	}
}
