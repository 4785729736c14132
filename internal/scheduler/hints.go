package scheduler

import "github.com/Yates-Labs/deadwave/internal/story"

// introHints and outroHints are small fixed template sets keyed by
// act_type (§4.6: "drawn from a small fixed template set"). The Weaver
// never invents text; these are the only strings a beat's hints may
// carry.
var introHints = map[story.ActType]string{
	story.ActSetup:      "Word's just come in about something starting up out there.",
	story.ActRising:     "Things are moving fast on that story we've been tracking.",
	story.ActClimax:     "Hold onto your dials, because this one's coming to a head.",
	story.ActFalling:    "The dust is starting to settle on that one.",
	story.ActResolution: "Here's how that story wrapped up.",
}

var outroHints = map[story.ActType]string{
	story.ActSetup:      "We'll keep an ear out for what happens next.",
	story.ActRising:     "More on that as it develops.",
	story.ActClimax:     "Stay tuned, the waste never holds its breath for long.",
	story.ActFalling:    "We'll let you know how it all settles.",
	story.ActResolution: "And that's the end of that one, folks.",
}

func introHint(t story.ActType) string {
	if h, ok := introHints[t]; ok {
		return h
	}
	return "Got a story for you."
}

func outroHint(t story.ActType) string {
	if h, ok := outroHints[t]; ok {
		return h
	}
	return "More to come."
}
