// Package extractor mines the lore vector store into validated Story
// objects: querying chunks, clustering them by wiki_title or
// faction+year proximity, building acts, assigning a timeline, and
// gating on narrative weight (spec §4.1).
package extractor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Yates-Labs/deadwave/internal/canon"
	"github.com/Yates-Labs/deadwave/internal/djprofile"
	"github.com/Yates-Labs/deadwave/internal/freshness"
	"github.com/Yates-Labs/deadwave/internal/rag"
	"github.com/Yates-Labs/deadwave/internal/story"
	"github.com/Yates-Labs/deadwave/internal/storyerr"
	"github.com/Yates-Labs/deadwave/internal/weight"
)

// Extractor turns vector-store chunks into candidate Stories.
type Extractor struct {
	Store     rag.VectorStore
	Embedder  rag.Embedder // optional; nil disables hybrid semantic search
	Scorer    *weight.Scorer
	Freshness *freshness.Tracker
	Log       zerolog.Logger
}

// NewExtractor wires a VectorStore, an optional Embedder for hybrid
// semantic search, canon tables (for the Scorer's faction-weight bonus),
// and a freshness tracker into an Extractor. embedder may be nil, in
// which case every query falls back to the store's plain metadata Query.
func NewExtractor(store rag.VectorStore, embedder rag.Embedder, tables canon.Tables, fresh *freshness.Tracker, log zerolog.Logger) *Extractor {
	return &Extractor{
		Store:     store,
		Embedder:  embedder,
		Scorer:    weight.NewScorer(tables),
		Freshness: fresh,
		Log:       log.With().Str("component", "extractor").Logger(),
	}
}

// ExtractQuests implements extract_quests(dj, limit): filter chunks tagged
// as quest content, apply the DJ's temporal/spatial bounds, group by
// wiki_title, and synthesize one Story per group of at least 2 chunks.
func (e *Extractor) ExtractQuests(ctx context.Context, dj djprofile.Profile, limit int) ([]story.Story, error) {
	filter := rag.Filter{
		ContentTypes: []string{"quest", "questline"},
	}
	chunks, err := e.queryWithDJBounds(ctx, filter, dj, limit)
	if err != nil {
		return nil, err
	}

	groups := groupByWikiTitle(chunks)
	var stories []story.Story
	for title, group := range groups {
		if len(group) < 2 {
			e.Log.Warn().Str("wiki_title", title).Int("chunk_count", len(group)).Msg("skipping quest cluster below minimum chunk count")
			continue
		}
		s, ok := e.synthesize(story.ContentTypeQuest, group)
		if !ok {
			continue
		}
		stories = append(stories, s)
	}

	sortStoriesDeterministic(stories)
	return stories, nil
}

// ExtractEvents implements extract_events(dj, limit): filter chunks tagged
// as events with a non-null year, cluster by faction+year proximity
// (same faction within ±2 years merges).
func (e *Extractor) ExtractEvents(ctx context.Context, dj djprofile.Profile, limit int) ([]story.Story, error) {
	filter := rag.Filter{ContentTypes: []string{"event"}}
	chunks, err := e.queryWithDJBounds(ctx, filter, dj, limit)
	if err != nil {
		return nil, err
	}

	var withYear []rag.Chunk
	for _, c := range chunks {
		if c.Metadata.YearMin == nil {
			e.Log.Warn().Str("chunk_id", c.ID).Msg("skipping event chunk with no year")
			continue
		}
		withYear = append(withYear, c)
	}

	groups := groupByFactionYearProximity(withYear, 2)
	var stories []story.Story
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		s, ok := e.synthesize(story.ContentTypeEvent, group)
		if !ok {
			continue
		}
		stories = append(stories, s)
	}

	sortStoriesDeterministic(stories)
	return stories, nil
}

// queryWithDJBounds applies the DJ's temporal/spatial filters (§4.4) on
// top of the content-type filter before querying the store, then runs the
// §4.7 freshness filters over the results before any clustering happens.
func (e *Extractor) queryWithDJBounds(ctx context.Context, filter rag.Filter, dj djprofile.Profile, limit int) ([]rag.Chunk, error) {
	if dj.Region != "" {
		filter.Regions = []string{dj.Region}
	}
	year := dj.Year
	filter.YearMax = &year

	chunks, err := e.query(ctx, filter, limit)
	if err != nil {
		return nil, storyerr.Wrap(storyerr.KindSourceUnavailable, "querying vector store", err)
	}
	return e.filterFresh(chunks), nil
}

// query runs the hybrid semantic search when a DJ-profile query benefits
// from similarity ranking over the filter's content-type/region/era
// terms (an Embedder is configured), falling back to the store's plain
// metadata query when no Embedder is wired or the embedding call fails.
func (e *Extractor) query(ctx context.Context, filter rag.Filter, limit int) ([]rag.Chunk, error) {
	if e.Embedder == nil {
		return e.Store.Query(ctx, filter, limit)
	}

	chunks, err := rag.HybridSearch(ctx, e.Embedder, e.Store, semanticQuery(filter), filter, limit)
	if err != nil {
		e.Log.Warn().Err(err).Msg("hybrid search failed, falling back to plain metadata query")
		return e.Store.Query(ctx, filter, limit)
	}
	return chunks, nil
}

// semanticQuery builds the free-text query HybridSearch embeds from a
// filter's content-type, region, and era terms.
func semanticQuery(filter rag.Filter) string {
	var parts []string
	parts = append(parts, filter.ContentTypes...)
	parts = append(parts, filter.Regions...)
	parts = append(parts, filter.Eras...)
	return strings.Join(parts, " ")
}

// filterFresh applies the rotation exclusion rules the extractor exposes
// to the vector query (§4.7): drop chunks used too recently, chunks whose
// tone is already over-represented in the rotation window, and chunks
// whose subject is still inside the 24-hour sliding window.
func (e *Extractor) filterFresh(chunks []rag.Chunk) []rag.Chunk {
	out := make([]rag.Chunk, 0, len(chunks))
	for _, c := range chunks {
		tone := deriveTone(c.Text)
		if e.Freshness.ToneOverrepresented(tone) {
			e.Log.Debug().Str("chunk_id", c.ID).Str("tone", tone).Msg("excluding chunk, tone over-represented")
			continue
		}
		if c.Metadata.Faction != "" && e.Freshness.SubjectInWindow(c.Metadata.Faction) {
			e.Log.Debug().Str("chunk_id", c.ID).Str("subject", c.Metadata.Faction).Msg("excluding chunk, subject in sliding window")
			continue
		}
		score := e.Freshness.Score(freshness.Candidate{
			ID:       c.ID,
			Subjects: []string{c.Metadata.Faction},
			Tone:     tone,
			Group:    c.Metadata.ContentType,
		})
		if !freshness.Fresh(score) {
			e.Log.Debug().Str("chunk_id", c.ID).Float64("freshness", score).Msg("excluding chunk below freshness floor")
			continue
		}
		out = append(out, c)
	}
	return out
}

func groupByWikiTitle(chunks []rag.Chunk) map[string][]rag.Chunk {
	groups := make(map[string][]rag.Chunk)
	for _, c := range chunks {
		groups[c.WikiTitle] = append(groups[c.WikiTitle], c)
	}
	return groups
}

// groupByFactionYearProximity clusters chunks that share a faction and
// whose years fall within maxGap of each other, scanning in year order.
func groupByFactionYearProximity(chunks []rag.Chunk, maxGap int) [][]rag.Chunk {
	byFaction := make(map[string][]rag.Chunk)
	for _, c := range chunks {
		f := c.Metadata.Faction
		byFaction[f] = append(byFaction[f], c)
	}

	var groups [][]rag.Chunk
	factions := make([]string, 0, len(byFaction))
	for f := range byFaction {
		factions = append(factions, f)
	}
	sort.Strings(factions)

	for _, f := range factions {
		cs := byFaction[f]
		sort.Slice(cs, func(i, j int) bool {
			return *cs[i].Metadata.YearMin < *cs[j].Metadata.YearMin
		})

		var current []rag.Chunk
		for _, c := range cs {
			if len(current) == 0 {
				current = []rag.Chunk{c}
				continue
			}
			last := current[len(current)-1]
			if *c.Metadata.YearMin-*last.Metadata.YearMin <= maxGap {
				current = append(current, c)
			} else {
				groups = append(groups, current)
				current = []rag.Chunk{c}
			}
		}
		if len(current) > 0 {
			groups = append(groups, current)
		}
	}
	return groups
}

// synthesize builds a Story from a chunk cluster, assigns its timeline,
// and applies the narrative-weight gate with a single demotion retry.
func (e *Extractor) synthesize(contentType story.ContentType, chunks []rag.Chunk) (story.Story, bool) {
	acts := buildActs(chunks)
	if len(acts) == 0 {
		return story.Story{}, false
	}

	tier := complexityTierOf(acts)
	if expected := e.Freshness.ExpectedTier(); tier != expected {
		e.Freshness.AdvanceTier(false)
		e.Log.Debug().Str("tier", string(tier)).Str("expected", string(expected)).Msg("discarding cluster outside expected complexity tier")
		return story.Story{}, false
	}
	e.Freshness.AdvanceTier(true)

	s := story.Story{
		ID:          fmt.Sprintf("%s-%s", contentType, chunks[0].ID),
		ContentType: contentType,
		Status:      story.StatusDormant,
		Acts:        acts,
		Provenance:  chunkIDs(chunks),
	}
	populateParticipants(&s, chunks)

	s.Timeline = assignTimeline(acts, e.Scorer.Tables)
	s.NarrativeWeight = e.Scorer.Score(&s)

	if s.NarrativeWeight >= story.WeightFloor[s.Timeline] {
		return s, true
	}

	demoted, ok := demote(s.Timeline)
	if !ok {
		e.Log.Info().Str("story_id", s.ID).Float64("weight", s.NarrativeWeight).Msg("discarding story below daily floor")
		return story.Story{}, false
	}
	s.Timeline = demoted
	if s.NarrativeWeight >= story.WeightFloor[s.Timeline] {
		return s, true
	}

	e.Log.Info().Str("story_id", s.ID).Float64("weight", s.NarrativeWeight).Str("timeline", string(s.Timeline)).Msg("discarding story after demotion retry")
	return story.Story{}, false
}

// assignTimeline applies the §4.1 pre-filter rules in priority order
// (yearly, then monthly, then weekly, falling through to daily) so that a
// cluster matching multiple bands lands on the highest-commitment one. The
// monthly rule requires a genuine faction rivalry or alliance, not mere
// faction-name variety: two factions the canon tables call neutral (or
// don't know about at all) don't bump a story to monthly on their own.
func assignTimeline(acts []story.StoryAct, tables canon.Tables) story.Timeline {
	n := len(acts)
	avgConflict := meanConflict(acts)
	factions := distinctFactions(acts)

	if n == 7 || hasWorldEventTheme(acts) {
		return story.TimelineYearly
	}
	if (n >= 5 && n <= 6) || hasContentiousFactionPair(factions, tables) {
		return story.TimelineMonthly
	}
	if n == 4 || (n >= 2 && n <= 3 && avgConflict >= 0.5) {
		return story.TimelineWeekly
	}
	return story.TimelineDaily
}

func demote(t story.Timeline) (story.Timeline, bool) {
	switch t {
	case story.TimelineYearly:
		return story.TimelineMonthly, true
	case story.TimelineMonthly:
		return story.TimelineWeekly, true
	case story.TimelineWeekly:
		return story.TimelineDaily, true
	default:
		return "", false
	}
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

func distinctFactions(acts []story.StoryAct) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range acts {
		for _, e := range a.Entities {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

// hasContentiousFactionPair reports whether any two distinct factions in
// the cluster have a recorded canon relationship other than neutral. An
// unrecorded pair is not contentious by default — the tables not knowing
// about a pair is not the same as the tables calling it neutral, but
// either way it shouldn't force a monthly classification on its own.
func hasContentiousFactionPair(factions []string, tables canon.Tables) bool {
	for i := 0; i < len(factions); i++ {
		for j := i + 1; j < len(factions); j++ {
			if rel, ok := tables.Relationship(factions[i], factions[j]); ok && rel != canon.RelationNeutral {
				return true
			}
		}
	}
	return false
}

// complexityTierOf maps a cluster's act count to the rotation sequencer's
// complexity tier: a short cluster reads as simple, a full arc as complex.
func complexityTierOf(acts []story.StoryAct) freshness.ComplexityTier {
	switch {
	case len(acts) <= 2:
		return freshness.TierSimple
	case len(acts) <= 4:
		return freshness.TierModerate
	default:
		return freshness.TierComplex
	}
}

func hasWorldEventTheme(acts []story.StoryAct) bool {
	for _, a := range acts {
		if hasWorldEventKeyword(a.Title) || hasWorldEventKeyword(a.Summary) {
			return true
		}
	}
	return false
}

func chunkIDs(chunks []rag.Chunk) []string {
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, c.ID)
	}
	return ids
}

// populateParticipants derives the story's era/region/faction/theme sets
// from its source chunks' metadata.
func populateParticipants(s *story.Story, chunks []rag.Chunk) {
	factions := make(map[string]bool)
	themes := make(map[string]bool)

	for _, c := range chunks {
		if s.Era == "" {
			s.Era = c.Metadata.Era
		}
		if s.Region == "" {
			s.Region = c.Metadata.Region
		}
		if c.Metadata.Faction != "" {
			factions[c.Metadata.Faction] = true
		}
		for _, t := range c.Metadata.Themes {
			themes[t] = true
		}
		if c.Metadata.YearMin != nil && (s.YearMin == nil || *c.Metadata.YearMin < *s.YearMin) {
			s.YearMin = c.Metadata.YearMin
		}
		if c.Metadata.YearMax != nil && (s.YearMax == nil || *c.Metadata.YearMax > *s.YearMax) {
			s.YearMax = c.Metadata.YearMax
		}
	}

	for f := range factions {
		s.Factions = append(s.Factions, f)
	}
	sort.Strings(s.Factions)
	for t := range themes {
		s.Themes = append(s.Themes, t)
	}
	sort.Strings(s.Themes)
}

// sortStoriesDeterministic orders extracted stories by id so repeated
// runs over the same chunk set produce the same slice order regardless
// of map iteration order upstream.
func sortStoriesDeterministic(stories []story.Story) {
	sort.Slice(stories, func(i, j int) bool {
		return stories[i].ID < stories[j].ID
	})
}
