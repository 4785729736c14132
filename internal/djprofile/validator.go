package djprofile

import (
	"fmt"

	"github.com/Yates-Labs/deadwave/internal/story"
	"github.com/Yates-Labs/deadwave/internal/storyerr"
)

// Validator applies the §4.4 rules in order to decide whether a DJ may
// narrate a Story and, if so, in what framing.
type Validator struct{}

// NewValidator constructs a Validator. It carries no state — the rules are
// pure functions of the Story and Profile.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate applies the four ordered rules and returns the framing to use,
// or a *storyerr.Error if the DJ may not narrate the story at all.
func (v *Validator) Validate(s *story.Story, dj *Profile) (story.Framing, *storyerr.Error) {
	framing := story.FramingDirect
	plausibleFuture := false

	// 1. Temporal.
	if s.YearMin != nil && *s.YearMin > dj.Year {
		if plausible(s) {
			framing = story.FramingRumor
			plausibleFuture = true
		} else {
			return "", storyerr.New(storyerr.KindTemporalBoundary,
				fmt.Sprintf("story %s: year_min %d is after DJ %s's present (%d)", s.ID, *s.YearMin, dj.ID, dj.Year))
		}
	}

	// 2. Spatial.
	if s.Region != "" && s.Region != dj.Region {
		distant := story.FramingReport
		known := false
		for _, e := range entitiesOf(s) {
			if dj.knowsFaction(e) {
				known = true
				break
			}
		}
		if !known {
			framing = weakerOf(framing, distant)
		}
		// If known, direct framing (or the rumor framing set by rule 1)
		// remains permitted — "direct is still allowed" per spec.
	}

	// 3. Faction knowledge.
	unknownFactionHit := false
	for _, f := range s.Factions {
		if dj.unknownFaction(f) {
			unknownFactionHit = true
			break
		}
	}
	if unknownFactionHit {
		framing = weakerOf(framing, story.FramingSpeculation)
	}

	// 4. Knowledge tier.
	if s.KnowledgeTier.Rank() > dj.KnowledgeTierCeiling.Rank() {
		return "", storyerr.New(storyerr.KindTierForbidden,
			fmt.Sprintf("story %s: knowledge_tier %s exceeds DJ %s's ceiling %s", s.ID, s.KnowledgeTier, dj.ID, dj.KnowledgeTierCeiling))
	}

	_ = plausibleFuture
	return framing, nil
}

// plausible reports whether a future story is tagged as something the DJ
// could plausibly have heard a rumor of, rather than something entirely
// unknowable. Lore, event, and faction-arc content types are treated as
// plausible rumor material; character arcs about specific unmet people,
// and quests, are not.
func plausible(s *story.Story) bool {
	switch s.ContentType {
	case story.ContentTypeLore, story.ContentTypeEvent, story.ContentTypeFactionArc:
		return true
	default:
		return false
	}
}

func entitiesOf(s *story.Story) []string {
	entities := make([]string, 0, len(s.Factions)+len(s.Characters)+len(s.Locations))
	entities = append(entities, s.Factions...)
	entities = append(entities, s.Characters...)
	entities = append(entities, s.Locations...)
	return entities
}

// framingStrength orders framings from most to least confident so
// weakerOf can pick the weaker (more hedged) of two candidate framings.
var framingStrength = map[story.Framing]int{
	story.FramingDirect:      3,
	story.FramingReport:      2,
	story.FramingRumor:       1,
	story.FramingSpeculation: 0,
}

func weakerOf(a, b story.Framing) story.Framing {
	if framingStrength[a] <= framingStrength[b] {
		return a
	}
	return b
}
