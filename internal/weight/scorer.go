// Package weight implements the Narrative Weight Scorer: a pure,
// deterministic function from a Story and its acts to a single float in
// [1.0, 10.0] summarizing "featured-worthiness" (spec §4.3).
package weight

import (
	"strings"

	"github.com/Yates-Labs/deadwave/internal/canon"
	"github.com/Yates-Labs/deadwave/internal/story"
)

const baseScore = 3.0

var positiveKeywords = []string{"war", "siege", "battle", "liberation", "betrayal", "sacrifice", "revelation"}
var fetchKeywords = []string{"collect", "fetch", "deliver", "gather"}

// significantThemes bonuses +0.5 each, capped at +1.5.
var significantThemes = map[string]bool{
	"war": true, "rebellion": true, "betrayal": true, "sacrifice": true,
	"discovery": true, "survival": true, "revenge": true, "redemption": true,
	"great_war": true, "founding_of_ncr": true, "fall_of_legion": true,
}

var contentTypeModifier = map[story.ContentType]float64{
	story.ContentTypeEvent:        1.0,
	story.ContentTypeFactionArc:   1.1,
	story.ContentTypeCharacterArc: 0.95,
	story.ContentTypeQuest:        1.0,
	story.ContentTypeLore:         0.8,
}

// Scorer computes narrative weight. It holds a faction-relationship table
// reference only to check for a hostile pair (§4.3's faction-weight bonus);
// it never mutates or queries canon for validity, that's canon.Validator's
// job.
type Scorer struct {
	Tables canon.Tables
}

// NewScorer constructs a Scorer over the given canon tables.
func NewScorer(tables canon.Tables) *Scorer {
	return &Scorer{Tables: tables}
}

// Score computes the story's narrative weight, clamped to [1.0, 10.0].
func (sc *Scorer) Score(s *story.Story) float64 {
	total := baseScore

	total += sc.keywordContribution(s)
	total += float64(max(0, len(s.Acts)-1)) * 0.5
	total += sc.factionWeight(s)
	total += 2.0 * meanConflict(s.Acts)
	total += sc.themeBonus(s)

	if mod, ok := contentTypeModifier[s.ContentType]; ok {
		total *= mod
	}

	return clamp(total, 1.0, 10.0)
}

func (sc *Scorer) keywordContribution(s *story.Story) float64 {
	var contribution float64
	text := allActText(s.Acts)

	for _, kw := range positiveKeywords {
		if strings.Contains(text, kw) {
			contribution += 1.5
		}
	}

	fetchHits := 0
	for _, kw := range fetchKeywords {
		if strings.Contains(text, kw) {
			fetchHits++
		}
	}
	// "dominant across titles" — more than half of acts' titles mention a
	// fetch-style keyword.
	if fetchHits > 0 && fetchDominant(s.Acts) {
		contribution -= 1.0 * float64(fetchHits)
	}

	return contribution
}

func fetchDominant(acts []story.StoryAct) bool {
	if len(acts) == 0 {
		return false
	}
	matches := 0
	for _, act := range acts {
		title := strings.ToLower(act.Title)
		for _, kw := range fetchKeywords {
			if strings.Contains(title, kw) {
				matches++
				break
			}
		}
	}
	return matches*2 > len(acts)
}

func (sc *Scorer) factionWeight(s *story.Story) float64 {
	var bonus float64
	hasMajor := false
	for _, f := range s.Factions {
		if canon.MajorFactions[f] {
			hasMajor = true
			break
		}
	}
	if hasMajor {
		bonus += 1.0
	}

	for i := 0; i < len(s.Factions); i++ {
		for j := i + 1; j < len(s.Factions); j++ {
			rel, ok := sc.Tables.Relationship(s.Factions[i], s.Factions[j])
			if ok && (rel == canon.RelationWar || rel == canon.RelationHostile) {
				bonus += 0.5
				return bonus
			}
		}
	}

	return bonus
}

func (sc *Scorer) themeBonus(s *story.Story) float64 {
	var bonus float64
	for _, t := range s.Themes {
		if significantThemes[t] {
			bonus += 0.5
		}
	}
	return clamp(bonus, 0.0, 1.5)
}

func meanConflict(acts []story.StoryAct) float64 {
	if len(acts) == 0 {
		return 0
	}
	var sum float64
	for _, a := range acts {
		sum += a.ConflictLevel
	}
	return sum / float64(len(acts))
}

func allActText(acts []story.StoryAct) string {
	var sb strings.Builder
	for _, a := range acts {
		sb.WriteString(strings.ToLower(a.Title))
		sb.WriteString(" ")
		sb.WriteString(strings.ToLower(a.Summary))
		sb.WriteString(" ")
	}
	return sb.String()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
