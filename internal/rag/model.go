// Package rag holds the vector-store-backed lore knowledge base the Story
// Extractor mines: chunk metadata, the storage interface, and the embedder
// used for hybrid semantic queries.
package rag

import "context"

// ChunkMetadata carries the scalar fields the Story Extractor and Lore
// Validator filter and check against. Fields are a closed set plus an
// open Extra bag for anything the source material tagged that isn't part
// of the core contract.
type ChunkMetadata struct {
	ContentType string            `json:"content_type,omitempty"`
	Era         string            `json:"era,omitempty"`
	Region      string            `json:"region,omitempty"`
	Faction     string            `json:"faction,omitempty"`
	YearMin     *int              `json:"year_min,omitempty"`
	YearMax     *int              `json:"year_max,omitempty"`
	Themes      []string          `json:"themes,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Chunk is a single retrievable piece of lore text.
type Chunk struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	WikiTitle string        `json:"wiki_title,omitempty"`
	Section   string        `json:"section,omitempty"`
	Score     float32       `json:"score,omitempty"`
	Metadata  ChunkMetadata `json:"metadata"`
}

// Filter constrains a metadata-only query or narrows a similarity search.
// Empty slices/nil bounds mean "no constraint on this field".
type Filter struct {
	ContentTypes []string
	Eras         []string
	Regions      []string
	Factions     []string
	YearMin      *int
	YearMax      *int
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return len(f.ContentTypes) == 0 && len(f.Eras) == 0 && len(f.Regions) == 0 &&
		len(f.Factions) == 0 && f.YearMin == nil && f.YearMax == nil
}

// VectorStore is the storage contract the Story Extractor depends on. It
// supports a plain metadata query (the common path — the extractor mostly
// filters by era/region/faction rather than embedding free text) and a
// vector similarity search for the hybrid case where a DJ profile's query
// benefits from semantic ranking.
type VectorStore interface {
	// Query returns up to limit chunks matching filter, with no similarity
	// ranking involved.
	Query(ctx context.Context, filter Filter, limit int) ([]Chunk, error)

	// SimilaritySearch ranks chunks by cosine similarity to queryVector,
	// narrowed by filter.
	SimilaritySearch(ctx context.Context, queryVector []float32, limit int, filter Filter) ([]Chunk, error)

	// Upsert inserts or replaces chunks along with their embeddings.
	Upsert(ctx context.Context, chunks []Chunk, embeddings [][]float32) error

	// Delete removes chunks by ID.
	Delete(ctx context.Context, ids []string) error

	// Stats returns collection statistics (row count, index status).
	Stats(ctx context.Context) (map[string]any, error)

	// Close releases the underlying connection.
	Close() error
}

// Embedder generates dense vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
