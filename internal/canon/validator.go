package canon

import (
	"fmt"

	"github.com/Yates-Labs/deadwave/internal/story"
	"github.com/Yates-Labs/deadwave/internal/storyerr"
)

// Validator enforces canon against a Story before it may enter a pool. It
// does not raise: Validate returns the full list of failures so the caller
// (the extractor) can decide to discard or demote.
type Validator struct {
	Tables Tables
}

// NewValidator constructs a Validator over the given tables.
func NewValidator(tables Tables) *Validator {
	return &Validator{Tables: tables}
}

// Validate runs the §4.2 checks in order and returns every failure found;
// an empty slice means the story is canon-consistent.
func (v *Validator) Validate(s *story.Story) []*storyerr.Error {
	var failures []*storyerr.Error

	failures = append(failures, v.checkFactionCooperation(s)...)
	failures = append(failures, v.checkFactionEra(s)...)
	failures = append(failures, v.checkCanonEvents(s)...)
	failures = append(failures, v.checkYearOrdering(s)...)

	return failures
}

// checkFactionCooperation fails if two factions the story treats as
// cooperating are at war or hostile in the canon tables.
func (v *Validator) checkFactionCooperation(s *story.Story) []*storyerr.Error {
	var failures []*storyerr.Error
	for i := 0; i < len(s.Factions); i++ {
		for j := i + 1; j < len(s.Factions); j++ {
			a, b := s.Factions[i], s.Factions[j]
			rel, ok := v.Tables.Relationship(a, b)
			if !ok {
				continue
			}
			if rel == RelationWar || rel == RelationHostile {
				failures = append(failures, storyerr.New(storyerr.KindCanonConflict,
					fmt.Sprintf("story %s: factions %s and %s are %s, cannot cooperate", s.ID, a, b, rel)))
			}
		}
	}
	return failures
}

// checkFactionEra fails if a referenced faction's lifespan does not
// overlap the story's year range.
func (v *Validator) checkFactionEra(s *story.Story) []*storyerr.Error {
	var failures []*storyerr.Error
	if s.YearMin == nil && s.YearMax == nil {
		return failures
	}
	for _, f := range s.Factions {
		ls, ok := v.Tables.Lifespan(f)
		if !ok {
			continue
		}
		storyMin, storyMax := s.YearMin, s.YearMax
		if storyMin != nil && ls.Dissolved != nil && *storyMin > *ls.Dissolved {
			failures = append(failures, storyerr.New(storyerr.KindFactionAnachronism,
				fmt.Sprintf("story %s: faction %s dissolved in %d, story begins %d", s.ID, f, *ls.Dissolved, *storyMin)))
			continue
		}
		if storyMax != nil && *storyMax < ls.Founded {
			failures = append(failures, storyerr.New(storyerr.KindFactionAnachronism,
				fmt.Sprintf("story %s: faction %s founded in %d, story ends %d", s.ID, f, ls.Founded, *storyMax)))
		}
	}
	return failures
}

// checkCanonEvents fails if a canon event referenced by name (via the
// story's themes, which carry event-name tags) disagrees with its
// recorded year.
func (v *Validator) checkCanonEvents(s *story.Story) []*storyerr.Error {
	var failures []*storyerr.Error
	for _, theme := range s.Themes {
		year, ok := v.Tables.EventYear(theme)
		if !ok {
			continue
		}
		if s.YearMin != nil && *s.YearMin > year {
			failures = append(failures, storyerr.New(storyerr.KindEventDateMismatch,
				fmt.Sprintf("story %s: references event %s (year %d) but year_min is %d", s.ID, theme, year, *s.YearMin)))
			continue
		}
		if s.YearMax != nil && *s.YearMax < year {
			failures = append(failures, storyerr.New(storyerr.KindEventDateMismatch,
				fmt.Sprintf("story %s: references event %s (year %d) but year_max is %d", s.ID, theme, year, *s.YearMax)))
		}
	}
	return failures
}

// checkYearOrdering fails if year_min > year_max, or if explicit act years
// are not monotonic non-decreasing. Acts don't carry an explicit year
// field in this model (see internal/story.StoryAct) so the monotonicity
// half of this check is a no-op until a future act-level year is added;
// the year_min/year_max ordering is the binding half.
func (v *Validator) checkYearOrdering(s *story.Story) []*storyerr.Error {
	var failures []*storyerr.Error
	if s.YearMin != nil && s.YearMax != nil && *s.YearMin > *s.YearMax {
		failures = append(failures, storyerr.New(storyerr.KindInvariantViolation,
			fmt.Sprintf("story %s: year_min %d > year_max %d", s.ID, *s.YearMin, *s.YearMax)))
	}
	return failures
}
