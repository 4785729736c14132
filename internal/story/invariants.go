package story

import (
	"fmt"

	"github.com/Yates-Labs/deadwave/internal/storyerr"
)

// Validate checks the §3 data-model invariants that apply to a Story in
// isolation (invariants that span the whole StoryState — at-most-one-
// active-per-timeline, at-most-one-structure membership — are enforced by
// internal/state, which has the container to check them against).
func Validate(s *Story) error {
	if s.ID == "" {
		return storyerr.New(storyerr.KindInvariantViolation, "story id must not be empty")
	}

	if len(s.Acts) < 1 || len(s.Acts) > 7 {
		return storyerr.New(storyerr.KindInvariantViolation,
			fmt.Sprintf("story %s: acts length %d out of range [1,7]", s.ID, len(s.Acts)))
	}

	for i, act := range s.Acts {
		if act.Index != i+1 {
			return storyerr.New(storyerr.KindInvariantViolation,
				fmt.Sprintf("story %s: acts must be sequential and contiguous starting at 1, got index %d at position %d", s.ID, act.Index, i))
		}
		if act.ConflictLevel < 0.0 || act.ConflictLevel > 1.0 {
			return storyerr.New(storyerr.KindInvariantViolation,
				fmt.Sprintf("story %s: act %d conflict_level %f out of [0,1]", s.ID, act.Index, act.ConflictLevel))
		}
		if act.BroadcastCount < 0 {
			return storyerr.New(storyerr.KindInvariantViolation,
				fmt.Sprintf("story %s: act %d broadcast_count negative", s.ID, act.Index))
		}
	}

	if s.YearMin != nil && s.YearMax != nil && *s.YearMin > *s.YearMax {
		return storyerr.New(storyerr.KindInvariantViolation,
			fmt.Sprintf("story %s: year_min %d > year_max %d", s.ID, *s.YearMin, *s.YearMax))
	}

	if s.NarrativeWeight < 1.0 || s.NarrativeWeight > 10.0 {
		return storyerr.New(storyerr.KindInvariantViolation,
			fmt.Sprintf("story %s: narrative_weight %f out of [1.0,10.0]", s.ID, s.NarrativeWeight))
	}

	return nil
}

// ValidateForPool additionally enforces the constraints that only apply
// once a story is placed into a scheduling pool (DJ compatibility must be
// non-empty, weight must clear the timeline floor).
func ValidateForPool(s *Story, floor float64) error {
	if err := Validate(s); err != nil {
		return err
	}
	if len(s.CompatibleDJs) == 0 {
		return storyerr.New(storyerr.KindInvariantViolation,
			fmt.Sprintf("story %s: DJ compatibility set must be non-empty to enter a pool", s.ID))
	}
	if s.NarrativeWeight < floor {
		return storyerr.New(storyerr.KindInvariantViolation,
			fmt.Sprintf("story %s: narrative_weight %f below timeline floor %f", s.ID, s.NarrativeWeight, floor))
	}
	return nil
}

// ValidateActiveStory checks the ActiveStory-local invariants.
func ValidateActiveStory(a *ActiveStory, totalActs int) error {
	if a.CurrentActIndex < 1 || a.CurrentActIndex > totalActs {
		return storyerr.New(storyerr.KindInvariantViolation,
			fmt.Sprintf("active story %s: current_act_index %d out of [1,%d]", a.StoryID, a.CurrentActIndex, totalActs))
	}
	if a.Progression < 0.0 || a.Progression > 1.0 {
		return storyerr.New(storyerr.KindInvariantViolation,
			fmt.Sprintf("active story %s: progression %f out of [0,1]", a.StoryID, a.Progression))
	}
	if a.BroadcastsInCurrentAct < 0 || a.TotalBroadcasts < 0 {
		return storyerr.New(storyerr.KindInvariantViolation,
			fmt.Sprintf("active story %s: negative broadcast counters", a.StoryID))
	}
	if a.EngagementScore < 0.0 || a.EngagementScore > 1.0 {
		return storyerr.New(storyerr.KindInvariantViolation,
			fmt.Sprintf("active story %s: engagement_score %f out of [0,1]", a.StoryID, a.EngagementScore))
	}
	return nil
}

// WeightFloor is the per-timeline narrative-weight gate shared by the
// extractor (which applies it on synthesis) and the state manager (which
// re-checks it at insertion time, per the §3 invariant).
var WeightFloor = map[Timeline]float64{
	TimelineDaily:   1.0,
	TimelineWeekly:  5.0,
	TimelineMonthly: 7.0,
	TimelineYearly:  9.0,
}

// TimelineOrder is the fixed daily→weekly→monthly→yearly processing order
// used by the Scheduler and the Weaver.
var TimelineOrder = []Timeline{TimelineDaily, TimelineWeekly, TimelineMonthly, TimelineYearly}

// TimelineRank returns t's position in TimelineOrder, or -1 if unknown.
func TimelineRank(t Timeline) int {
	for i, tl := range TimelineOrder {
		if tl == t {
			return i
		}
	}
	return -1
}
