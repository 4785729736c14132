package canon

import (
	"testing"

	"github.com/Yates-Labs/deadwave/internal/story"
	"github.com/Yates-Labs/deadwave/internal/storyerr"
)

func yr(y int) *int { return &y }

func TestValidate_NoFailuresForCleanStory(t *testing.T) {
	v := NewValidator(Default())
	s := &story.Story{
		ID:       "story-1",
		Factions: []string{"ncr", "minutemen"},
		YearMin:  yr(2281),
		YearMax:  yr(2281),
	}

	if failures := v.Validate(s); len(failures) != 0 {
		t.Fatalf("expected no failures, got %v", failures)
	}
}

func TestCheckFactionCooperation_WarringFactionsFail(t *testing.T) {
	v := NewValidator(Default())
	s := &story.Story{ID: "story-2", Factions: []string{"ncr", "legion"}}

	failures := v.checkFactionCooperation(s)
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if failures[0].Kind != storyerr.KindCanonConflict {
		t.Errorf("expected KindCanonConflict, got %s", failures[0].Kind)
	}
}

func TestCheckFactionEra_DissolvedFactionFails(t *testing.T) {
	v := NewValidator(Default())
	s := &story.Story{ID: "story-3", Factions: []string{"legion"}, YearMin: yr(2290)}

	failures := v.checkFactionEra(s)
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure for post-dissolution legion story, got %d", len(failures))
	}
	if failures[0].Kind != storyerr.KindFactionAnachronism {
		t.Errorf("expected KindFactionAnachronism, got %s", failures[0].Kind)
	}
}

func TestCheckFactionEra_PreFoundingFails(t *testing.T) {
	v := NewValidator(Default())
	s := &story.Story{ID: "story-4", Factions: []string{"institute"}, YearMax: yr(2090)}

	failures := v.checkFactionEra(s)
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure for pre-founding institute story, got %d", len(failures))
	}
}

func TestCheckCanonEvents_ThemeBeforeEventYearFails(t *testing.T) {
	v := NewValidator(Default())
	s := &story.Story{ID: "story-5", Themes: []string{"great_war"}, YearMin: yr(2100)}

	failures := v.checkCanonEvents(s)
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if failures[0].Kind != storyerr.KindEventDateMismatch {
		t.Errorf("expected KindEventDateMismatch, got %s", failures[0].Kind)
	}
}

func TestCheckYearOrdering_MinAfterMaxFails(t *testing.T) {
	v := NewValidator(Default())
	s := &story.Story{ID: "story-6", YearMin: yr(2300), YearMax: yr(2200)}

	failures := v.checkYearOrdering(s)
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
}
