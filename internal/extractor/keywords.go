package extractor

import "strings"

// classifyActType classifies a chunk of narrative text into an act type by
// keyword family. Families are checked in a fixed order; climax keywords
// are checked before the softer rising/falling families so that a battle
// description doesn't also read as "advance".
func classifyActType(text string) (actType string, conflict float64) {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, climaxKeywords):
		return "climax", 0.85
	case containsAny(lower, fallingKeywords):
		return "falling", 0.3
	case containsAny(lower, risingKeywords):
		return "rising", 0.55
	case containsAny(lower, resolutionKeywords):
		return "resolution", 0.1
	case containsAny(lower, setupKeywords):
		return "setup", 0.15
	default:
		return "rising", 0.4
	}
}

var setupKeywords = []string{"arrival", "arrives", "discovery", "discovers", "begins", "began"}
var risingKeywords = []string{"advance", "advances", "march", "marches", "pursue", "pursues", "pursuit"}
var climaxKeywords = []string{"battle", "fight", "confrontation", "attack", "assault", "ambush"}
var fallingKeywords = []string{"retreat", "retreats", "aftermath", "withdraw", "withdrawal"}
var resolutionKeywords = []string{"victory", "peace", "resolved", "ended", "surrender", "armistice"}

// worldEventKeywords mark a chunk as referencing a canon-scale event,
// used by the yearly pre-filter in Timeline assignment.
var worldEventKeywords = []string{"war", "fall of", "founding of"}

// toneKeywordFamilies map keyword hits to an emotional tone; counted over
// a chunk's text, and again over the combined text when adjacent
// same-type acts merge, and the most frequent family wins, defaulting to
// neutral.
var toneKeywordFamilies = map[string][]string{
	"hopeful":    {"hope", "rebuild", "dawn", "promise", "alliance"},
	"tragic":     {"death", "die", "fallen", "loss", "ruin", "slaughter"},
	"mysterious": {"unknown", "vanished", "mystery", "whisper", "hidden"},
	"comedic":    {"joke", "blunder", "absurd", "prank"},
	"tense":      {"standoff", "threat", "tension", "danger", "ambush"},
}

func deriveTone(text string) string {
	lower := strings.ToLower(text)
	best := "neutral"
	bestCount := 0
	for _, tone := range []string{"hopeful", "tragic", "mysterious", "comedic", "tense"} {
		count := 0
		for _, kw := range toneKeywordFamilies[tone] {
			count += strings.Count(lower, kw)
		}
		if count > bestCount {
			bestCount = count
			best = tone
		}
	}
	return best
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func hasWorldEventKeyword(text string) bool {
	return containsAny(strings.ToLower(text), worldEventKeywords)
}
