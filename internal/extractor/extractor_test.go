package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yates-Labs/deadwave/internal/canon"
	"github.com/Yates-Labs/deadwave/internal/djprofile"
	"github.com/Yates-Labs/deadwave/internal/freshness"
	"github.com/Yates-Labs/deadwave/internal/rag"
	"github.com/Yates-Labs/deadwave/internal/story"
	"github.com/Yates-Labs/deadwave/internal/weight"
)

var testClock = func() time.Time { return time.Date(2281, 10, 23, 0, 0, 0, 0, time.UTC) }

type stubStore struct {
	chunks    []rag.Chunk
	simChunks []rag.Chunk
}

func (s *stubStore) Query(ctx context.Context, filter rag.Filter, limit int) ([]rag.Chunk, error) {
	return s.chunks, nil
}
func (s *stubStore) SimilaritySearch(ctx context.Context, queryVector []float32, limit int, filter rag.Filter) ([]rag.Chunk, error) {
	return s.simChunks, nil
}
func (s *stubStore) Upsert(ctx context.Context, chunks []rag.Chunk, embeddings [][]float32) error {
	return nil
}
func (s *stubStore) Delete(ctx context.Context, ids []string) error      { return nil }
func (s *stubStore) Stats(ctx context.Context) (map[string]any, error) { return nil, nil }
func (s *stubStore) Close() error                                       { return nil }

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return [][]float32{f.vec}, nil
}

func testDJProfile() djprofile.Profile {
	return djprofile.Profile{ID: "dj-test", Region: "mojave", Year: 2281, KnowledgeTierCeiling: story.TierRestricted}
}

func TestExtractQuests_GroupsByWikiTitleAndDropsSingletons(t *testing.T) {
	store := &stubStore{chunks: []rag.Chunk{
		{ID: "q1", WikiTitle: "The Lonesome Road", Text: "Scouts arrives to find the crater.", Metadata: rag.ChunkMetadata{Faction: "ncr"}},
		{ID: "q2", WikiTitle: "The Lonesome Road", Text: "The battle for Hopeville begins.", Metadata: rag.ChunkMetadata{Faction: "ncr"}},
		{ID: "q3", WikiTitle: "A Lone Courier's Errand", Text: "A single chunk with no pair.", Metadata: rag.ChunkMetadata{Faction: "ncr"}},
	}}
	e := NewExtractor(store, nil, canon.Default(), freshness.NewTracker(testClock), zerolog.Nop())

	stories, err := e.ExtractQuests(context.Background(), testDJProfile(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stories) != 1 {
		t.Fatalf("expected exactly one story (singleton wiki_title dropped), got %d", len(stories))
	}
	if stories[0].ContentType != story.ContentTypeQuest {
		t.Errorf("ContentType = %s, want quest", stories[0].ContentType)
	}
}

func TestAssignTimeline_SevenActsIsYearly(t *testing.T) {
	acts := make([]story.StoryAct, 7)
	if got := assignTimeline(acts, canon.Default()); got != story.TimelineYearly {
		t.Errorf("assignTimeline(7 acts) = %s, want yearly", got)
	}
}

func TestAssignTimeline_WarringFactionPairIsMonthly(t *testing.T) {
	acts := []story.StoryAct{
		{Entities: []string{"ncr"}},
		{Entities: []string{"legion"}},
	}
	if got := assignTimeline(acts, canon.Default()); got != story.TimelineMonthly {
		t.Errorf("assignTimeline(ncr+legion, a war pair) = %s, want monthly", got)
	}
}

func TestAssignTimeline_UnrelatedFactionPairIsNotMonthly(t *testing.T) {
	acts := []story.StoryAct{
		{Entities: []string{"railroad"}},
		{Entities: []string{"enclave"}},
	}
	if got := assignTimeline(acts, canon.Default()); got != story.TimelineDaily {
		t.Errorf("assignTimeline(railroad+enclave, no recorded relationship) = %s, want daily", got)
	}
}

func TestAssignTimeline_HighConflictShortRunIsWeekly(t *testing.T) {
	acts := []story.StoryAct{
		{ConflictLevel: 0.6, Entities: []string{"ncr"}},
		{ConflictLevel: 0.6, Entities: []string{"ncr"}},
	}
	if got := assignTimeline(acts, canon.Default()); got != story.TimelineWeekly {
		t.Errorf("assignTimeline(2 high-conflict acts) = %s, want weekly", got)
	}
}

func TestAssignTimeline_DefaultsToDaily(t *testing.T) {
	acts := []story.StoryAct{
		{ConflictLevel: 0.1, Entities: []string{"ncr"}},
	}
	if got := assignTimeline(acts, canon.Default()); got != story.TimelineDaily {
		t.Errorf("assignTimeline(single low-conflict act) = %s, want daily", got)
	}
}

func TestDemote_StepsDownOneBand(t *testing.T) {
	cases := []struct {
		from story.Timeline
		want story.Timeline
		ok   bool
	}{
		{story.TimelineYearly, story.TimelineMonthly, true},
		{story.TimelineMonthly, story.TimelineWeekly, true},
		{story.TimelineWeekly, story.TimelineDaily, true},
		{story.TimelineDaily, "", false},
	}
	for _, c := range cases {
		got, ok := demote(c.from)
		if ok != c.ok || got != c.want {
			t.Errorf("demote(%s) = (%s, %v), want (%s, %v)", c.from, got, ok, c.want, c.ok)
		}
	}
}

func TestQuery_UsesHybridSearchWhenEmbedderConfigured(t *testing.T) {
	store := &stubStore{simChunks: []rag.Chunk{{ID: "sim-1"}}}
	e := NewExtractor(store, &fakeEmbedder{vec: []float32{0.1, 0.2}}, canon.Default(), freshness.NewTracker(testClock), zerolog.Nop())

	chunks, err := e.query(context.Background(), rag.Filter{ContentTypes: []string{"quest"}}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].ID != "sim-1" {
		t.Errorf("expected the similarity-search result, got %+v", chunks)
	}
}

func TestQuery_FallsBackToPlainQueryOnEmbedFailure(t *testing.T) {
	store := &stubStore{chunks: []rag.Chunk{{ID: "plain-1"}}}
	e := NewExtractor(store, &fakeEmbedder{err: errors.New("embed down")}, canon.Default(), freshness.NewTracker(testClock), zerolog.Nop())

	chunks, err := e.query(context.Background(), rag.Filter{ContentTypes: []string{"quest"}}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].ID != "plain-1" {
		t.Errorf("expected fallback to plain query result, got %+v", chunks)
	}
}

func TestQuery_UsesPlainQueryWhenNoEmbedder(t *testing.T) {
	store := &stubStore{chunks: []rag.Chunk{{ID: "plain-1"}}}
	e := NewExtractor(store, nil, canon.Default(), freshness.NewTracker(testClock), zerolog.Nop())

	chunks, err := e.query(context.Background(), rag.Filter{ContentTypes: []string{"quest"}}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].ID != "plain-1" {
		t.Errorf("expected plain query result, got %+v", chunks)
	}
}

func TestFilterFresh_ExcludesSubjectInSlidingWindow(t *testing.T) {
	tracker := freshness.NewTracker(testClock)
	tracker.RecordUse("prior-story", []string{"ncr"}, "tense", "quest")
	e := NewExtractor(&stubStore{}, nil, canon.Default(), tracker, zerolog.Nop())

	chunks := e.filterFresh([]rag.Chunk{{ID: "c1", Text: "A calm patrol chunk.", Metadata: rag.ChunkMetadata{Faction: "ncr"}}})
	if len(chunks) != 0 {
		t.Errorf("expected chunk with subject in the sliding window to be excluded, got %+v", chunks)
	}
}

func TestFilterFresh_KeepsNeverUsedChunk(t *testing.T) {
	e := NewExtractor(&stubStore{}, nil, canon.Default(), freshness.NewTracker(testClock), zerolog.Nop())

	chunks := e.filterFresh([]rag.Chunk{{ID: "c1", Text: "A calm patrol chunk.", Metadata: rag.ChunkMetadata{Faction: "legion"}}})
	if len(chunks) != 1 {
		t.Errorf("expected a never-used chunk to survive filtering, got %d", len(chunks))
	}
}

func TestComplexityTierOf_ScalesWithActCount(t *testing.T) {
	cases := []struct {
		n    int
		want freshness.ComplexityTier
	}{
		{1, freshness.TierSimple},
		{2, freshness.TierSimple},
		{3, freshness.TierModerate},
		{4, freshness.TierModerate},
		{5, freshness.TierComplex},
		{7, freshness.TierComplex},
	}
	for _, c := range cases {
		if got := complexityTierOf(make([]story.StoryAct, c.n)); got != c.want {
			t.Errorf("complexityTierOf(%d acts) = %s, want %s", c.n, got, c.want)
		}
	}
}

func TestSynthesize_DiscardsClusterOutsideExpectedTier(t *testing.T) {
	tracker := freshness.NewTracker(testClock)
	tracker.AdvanceTier(true) // expected tier is now moderate, not simple

	e := &Extractor{Scorer: weight.NewScorer(canon.Default()), Freshness: tracker, Log: zerolog.Nop()}
	chunks := []rag.Chunk{{ID: "c1", Text: "Scouts arrives to find the crater.", Metadata: rag.ChunkMetadata{Faction: "ncr"}}}

	if _, ok := e.synthesize(story.ContentTypeQuest, chunks); ok {
		t.Error("expected a simple-tier cluster to be discarded when the sequencer expects moderate")
	}
}
