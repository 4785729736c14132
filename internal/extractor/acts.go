package extractor

import (
	"github.com/Yates-Labs/deadwave/internal/rag"
	"github.com/Yates-Labs/deadwave/internal/story"
)

// buildActs turns a same-wiki_title cluster of chunks, already in source
// order, into a merged, capped, renumbered act sequence.
func buildActs(chunks []rag.Chunk) []story.StoryAct {
	if len(chunks) == 0 {
		return nil
	}

	raw := make([]story.StoryAct, 0, len(chunks))
	for _, c := range chunks {
		actType, conflict := classifyActType(c.Text)
		entities := []string{}
		if c.Metadata.Faction != "" {
			entities = append(entities, c.Metadata.Faction)
		}
		raw = append(raw, story.StoryAct{
			Type:           story.ActType(actType),
			Title:          c.WikiTitle,
			Summary:        c.Text,
			ConflictLevel:  conflict,
			Tone:           story.Tone(deriveTone(c.Text)),
			SourceChunkIDs: []string{c.ID},
			Themes:         c.Metadata.Themes,
			Entities:       entities,
		})
	}

	merged := mergeAdjacentSameType(raw)
	merged = capActs(merged, 7)
	return renumber(merged)
}

// mergeAdjacentSameType collapses runs of the same act_type, in source
// order, into a single act whose text, sources, and themes concatenate
// and whose conflict level is the run's mean.
func mergeAdjacentSameType(acts []story.StoryAct) []story.StoryAct {
	if len(acts) == 0 {
		return nil
	}

	merged := []story.StoryAct{acts[0]}
	for _, a := range acts[1:] {
		last := &merged[len(merged)-1]
		if last.Type == a.Type {
			last.Summary = last.Summary + " " + a.Summary
			last.SourceChunkIDs = append(last.SourceChunkIDs, a.SourceChunkIDs...)
			last.Themes = dedupeStrings(append(last.Themes, a.Themes...))
			last.Entities = dedupeStrings(append(last.Entities, a.Entities...))
			last.ConflictLevel = (last.ConflictLevel + a.ConflictLevel) / 2
			last.Tone = story.Tone(deriveTone(last.Summary))
			continue
		}
		merged = append(merged, a)
	}
	return merged
}

// capActs collapses the lowest-conflict adjacent pair, repeatedly, until
// at most max acts remain.
func capActs(acts []story.StoryAct, max int) []story.StoryAct {
	for len(acts) > max {
		i := lowestConflictAdjacentPair(acts)
		acts = collapsePair(acts, i)
	}
	return acts
}

func lowestConflictAdjacentPair(acts []story.StoryAct) int {
	best := 0
	bestSum := acts[0].ConflictLevel + acts[1].ConflictLevel
	for i := 1; i < len(acts)-1; i++ {
		sum := acts[i].ConflictLevel + acts[i+1].ConflictLevel
		if sum < bestSum {
			bestSum = sum
			best = i
		}
	}
	return best
}

func collapsePair(acts []story.StoryAct, i int) []story.StoryAct {
	a, b := acts[i], acts[i+1]
	combined := story.StoryAct{
		Type:           a.Type,
		Title:          a.Title,
		Summary:        a.Summary + " " + b.Summary,
		ConflictLevel:  (a.ConflictLevel + b.ConflictLevel) / 2,
		Tone:           dominantTone(a.Tone, b.Tone),
		SourceChunkIDs: append(append([]string{}, a.SourceChunkIDs...), b.SourceChunkIDs...),
		Themes:         dedupeStrings(append(append([]string{}, a.Themes...), b.Themes...)),
		Entities:       dedupeStrings(append(append([]string{}, a.Entities...), b.Entities...)),
	}

	out := make([]story.StoryAct, 0, len(acts)-1)
	out = append(out, acts[:i]...)
	out = append(out, combined)
	out = append(out, acts[i+2:]...)
	return out
}

func renumber(acts []story.StoryAct) []story.StoryAct {
	for i := range acts {
		acts[i].Index = i + 1
	}
	// The last act of any story always carries the resolution act_type
	// only if it was already classified that way; renumbering never
	// rewrites classification, only position.
	return acts
}

func dominantTone(a, b story.Tone) story.Tone {
	if a == story.ToneNeutral {
		return b
	}
	return a
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
