package cmd

import (
	"context"
	"fmt"

	"github.com/Yates-Labs/deadwave/internal/canon"
	"github.com/Yates-Labs/deadwave/internal/djprofile"
	"github.com/Yates-Labs/deadwave/internal/engine"
	"github.com/Yates-Labs/deadwave/internal/rag"
)

// buildEngine wires a *rag.MilvusStore, the configured canon tables and DJ
// roster, and a restored snapshot into a ready-to-use *engine.Engine. It
// mirrors the teacher's orchestrator.NewRAGPipeline wiring, generalized
// from one RAG pipeline to the full extractor→validator→scheduler→weaver→
// state chain.
func buildEngine(ctx context.Context) (*engine.Engine, djprofile.Roster, error) {
	tables, err := canon.Load(cfg.App.CanonTablesPath)
	if err != nil {
		return nil, djprofile.Roster{}, fmt.Errorf("loading canon tables: %w", err)
	}

	roster, err := djprofile.LoadRoster(cfg.App.DJRosterPath)
	if err != nil {
		return nil, djprofile.Roster{}, fmt.Errorf("loading DJ roster: %w", err)
	}

	store, err := rag.NewMilvusStore(ctx, rag.MilvusConfig{
		Address:        cfg.Milvus.Address,
		CollectionName: cfg.Milvus.Collection,
		Dimension:      1536,
		IndexType:      "HNSW",
		MetricType:     "COSINE",
		M:              16,
		EfConstruction: 256,
	}, log)
	if err != nil {
		return nil, djprofile.Roster{}, fmt.Errorf("connecting to lore store: %w", err)
	}

	var embedder rag.Embedder
	if oa, oaErr := rag.NewOpenAIEmbedder(cfg.OpenAI.EmbeddingModel, 1536, log); oaErr != nil {
		log.Warn().Err(oaErr).Msg("no embedder configured, extractor falls back to plain metadata queries")
	} else {
		embedder = oa
	}

	eng := engine.New(engine.Config{
		Store:    store,
		Embedder: embedder,
		Tables:   tables,
		Roster:   roster,
		Seed:     cfg.Scheduler.Seed,
		Log:      log,
	})

	if err := eng.State.LoadFromFile(cfg.App.SnapshotPath); err != nil {
		return nil, djprofile.Roster{}, fmt.Errorf("loading snapshot: %w", err)
	}

	return eng, roster, nil
}

// saveEngine persists the engine's current state back to the configured
// snapshot path, atomically.
func saveEngine(eng *engine.Engine) error {
	return eng.State.SaveToFile(cfg.App.SnapshotPath)
}
