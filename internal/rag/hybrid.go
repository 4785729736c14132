package rag

import (
	"context"
	"fmt"
)

// HybridSearch embeds a free-text query and ranks lore chunks by similarity,
// narrowed by filter. Used when a DJ profile's scheduling query benefits
// from semantic ranking rather than plain metadata filtering.
func HybridSearch(ctx context.Context, embedder Embedder, store VectorStore, query string, filter Filter, limit int) ([]Chunk, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	embeddings, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding generated for query")
	}

	chunks, err := store.SimilaritySearch(ctx, embeddings[0], limit, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search for query: %w", err)
	}
	return chunks, nil
}
