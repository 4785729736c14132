// Package weaver implements the composition contract (spec §4.8): it
// turns a tick's emitted StoryBeats into a single Packet for the external
// generator, choosing transitions from a fixed table and attaching
// callbacks to recently archived stories. It never invents story content,
// only arranges what the Scheduler already produced.
package weaver

import (
	"strings"

	"github.com/Yates-Labs/deadwave/internal/state"
	"github.com/Yates-Labs/deadwave/internal/story"
)

// Packet is the only thing the core emits to the outside per broadcast
// tick.
type Packet struct {
	OrderedBeats     []story.StoryBeat `json:"ordered_beats"`
	Transitions      []string          `json:"transitions"`
	Callbacks        []Callback        `json:"callbacks,omitempty"`
	EmergencyPreempt bool              `json:"emergency_preempt"`
}

// Callback references a recently completed story whose subjects overlap
// with the current tick's beats.
type Callback struct {
	StoryID   string `json:"story_id"`
	Title     string `json:"title"`
	Timeline  story.Timeline `json:"timeline"`
}

const maxBeats = 4
const callbackLookback = 5

// transitionTable keyed by (prev_timeline, next_timeline), fixed per
// spec §4.8. Pairs not in the table, including two adjacent beats on the
// same cadence (which the Scheduler never produces, since each timeline
// contributes at most one beat per tick), fall back to defaultTransition.
var transitionTable = map[[2]story.Timeline]string{
	{story.TimelineDaily, story.TimelineWeekly}:   "Meanwhile, further out on the horizon...",
	{story.TimelineDaily, story.TimelineMonthly}:  "And if you've been following the long game...",
	{story.TimelineDaily, story.TimelineYearly}:   "Zooming out to the bigger picture now...",
	{story.TimelineWeekly, story.TimelineMonthly}: "Speaking of slower burns...",
	{story.TimelineWeekly, story.TimelineYearly}:  "On an even longer timeline...",
	{story.TimelineMonthly, story.TimelineYearly}: "And for the story that's been building for years...",
}

const defaultTransition = "In other news..."

// Weave assembles a Packet from this tick's beats and the archive's
// recently completed stories.
func Weave(beats []story.StoryBeat, archive state.Archive, emergencyPreempt bool) Packet {
	if len(beats) > maxBeats {
		beats = beats[:maxBeats]
	}

	packet := Packet{
		OrderedBeats:     beats,
		EmergencyPreempt: emergencyPreempt,
	}

	if emergencyPreempt {
		return packet
	}

	packet.Transitions = transitionsFor(beats)
	packet.Callbacks = callbacksFor(beats, archive)
	return packet
}

func transitionsFor(beats []story.StoryBeat) []string {
	if len(beats) < 2 {
		return nil
	}
	out := make([]string, 0, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		key := [2]story.Timeline{beats[i-1].Timeline, beats[i].Timeline}
		t, ok := transitionTable[key]
		if !ok {
			t = defaultTransition
		}
		out = append(out, t)
	}
	return out
}

// callbacksFor returns references to the last callbackLookback archived
// stories whose subjects overlap any beat's entities or themes.
func callbacksFor(beats []story.StoryBeat, archive state.Archive) []Callback {
	subjects := make(map[string]bool)
	for _, b := range beats {
		for _, e := range b.Entities {
			subjects[strings.ToLower(e)] = true
		}
		for _, t := range b.Themes {
			subjects[strings.ToLower(t)] = true
		}
	}
	if len(subjects) == 0 {
		return nil
	}

	completed := archive.Completed
	start := 0
	if len(completed) > callbackLookback {
		start = len(completed) - callbackLookback
	}
	recent := completed[start:]

	var callbacks []Callback
	for i := len(recent) - 1; i >= 0; i-- {
		rec := recent[i]
		if overlaps(subjects, rec.Entities) || overlaps(subjects, rec.Themes) {
			callbacks = append(callbacks, Callback{StoryID: rec.ID, Title: rec.Title, Timeline: rec.Timeline})
		}
	}
	return callbacks
}

// overlaps reports whether any value's lowercase form is present in subjects.
func overlaps(subjects map[string]bool, vals []string) bool {
	for _, v := range vals {
		if subjects[strings.ToLower(v)] {
			return true
		}
	}
	return false
}
