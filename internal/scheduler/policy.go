package scheduler

import "github.com/Yates-Labs/deadwave/internal/story"

// Policy is the fixed per-timeline tuning the scheduler's tick algorithm
// reads from, per spec §4.6's constants table.
type Policy struct {
	BaseInclusionP float64
	MinGap         int
	MinBroadcastsPerAct int
	MaxBroadcastsPerAct int
	ActAdvanceP    float64
	CompletionCooldown int
}

// Policies is the §4.6 constants table, one row per timeline.
var Policies = map[story.Timeline]Policy{
	story.TimelineDaily: {
		BaseInclusionP:      0.70,
		MinGap:              0,
		MinBroadcastsPerAct: 1,
		MaxBroadcastsPerAct: 3,
		ActAdvanceP:         0.30,
		CompletionCooldown:  2,
	},
	story.TimelineWeekly: {
		BaseInclusionP:      0.40,
		MinGap:              1,
		MinBroadcastsPerAct: 2,
		MaxBroadcastsPerAct: 6,
		ActAdvanceP:         0.30,
		CompletionCooldown:  5,
	},
	story.TimelineMonthly: {
		BaseInclusionP:      0.20,
		MinGap:              3,
		MinBroadcastsPerAct: 3,
		MaxBroadcastsPerAct: 15,
		ActAdvanceP:         0.30,
		CompletionCooldown:  10,
	},
	story.TimelineYearly: {
		BaseInclusionP:      0.10,
		MinGap:              10,
		MinBroadcastsPerAct: 5,
		MaxBroadcastsPerAct: 30,
		ActAdvanceP:         0.30,
		CompletionCooldown:  20,
	},
}

// ExpectedDuration returns the nominal number of broadcasts a story on
// this timeline is expected to take to resolve, used by the abandonment
// check (total_broadcasts > 2x expected without resolution). It is
// approximated as the midpoint of min/max broadcasts per act times a
// typical 4-act story, which keeps the bound independent of any one
// story's actual act count while still scaling with the timeline's
// cadence.
func (p Policy) ExpectedDuration() int {
	mid := (p.MinBroadcastsPerAct + p.MaxBroadcastsPerAct) / 2
	return mid * 4
}
