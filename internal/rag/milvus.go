package rag

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/rs/zerolog"
)

func init() {
	_ = godotenv.Load("../../../.env")
}

// Common errors for Milvus operations.
var (
	ErrInvalidDimension = errors.New("invalid vector dimension")
	ErrEmptyChunks      = errors.New("no chunks provided for insertion")
	ErrConnectionFailed = errors.New("failed to connect to Milvus")
	ErrInsertFailed     = errors.New("failed to insert chunks")
	ErrSearchFailed     = errors.New("failed to search vectors")
	ErrQueryFailed      = errors.New("failed to query chunks")
)

// MilvusConfig holds configuration for the Milvus connection and collection.
type MilvusConfig struct {
	Address        string
	CollectionName string
	Dimension      int
	IndexType      string
	MetricType     string

	M              int
	EfConstruction int
}

// DefaultMilvusConfig returns default configuration from environment variables.
func DefaultMilvusConfig() MilvusConfig {
	address := os.Getenv("MILVUS_ADDRESS")
	if address == "" {
		address = "localhost:19530"
	}

	collection := os.Getenv("MILVUS_COLLECTION")
	if collection == "" {
		collection = "wasteland_lore"
	}

	dimension := 3072
	if v := os.Getenv("MILVUS_DIMENSION"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			dimension = parsed
		}
	}

	return MilvusConfig{
		Address:        address,
		CollectionName: collection,
		Dimension:      dimension,
		IndexType:      "HNSW",
		MetricType:     "COSINE",
		M:              16,
		EfConstruction: 256,
	}
}

// MilvusStore implements VectorStore using Milvus.
type MilvusStore struct {
	client client.Client
	config MilvusConfig
	Log    zerolog.Logger
}

// NewMilvusStore connects to Milvus and ensures the lore collection exists.
func NewMilvusStore(ctx context.Context, config MilvusConfig, log zerolog.Logger) (*MilvusStore, error) {
	if config.Dimension <= 0 {
		return nil, ErrInvalidDimension
	}

	storeLog := log.With().Str("component", "milvus").Logger()

	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		storeLog.Error().Err(err).Str("address", config.Address).Msg("failed to connect to Milvus")
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	store := &MilvusStore{client: c, config: config, Log: storeLog}

	if err := store.ensureCollection(ctx); err != nil {
		storeLog.Error().Err(err).Str("collection", config.CollectionName).Msg("failed to ensure lore collection")
		c.Close()
		return nil, err
	}

	return store, nil
}

func (m *MilvusStore) ensureCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if has {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.config.CollectionName,
		AutoID:         true,
		Fields: []*entity.Field{
			{Name: "id", DataType: entity.FieldTypeInt64, PrimaryKey: true, AutoID: true},
			{Name: "chunk_id", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "64"}},
			{Name: "text", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "65535"}},
			{Name: "wiki_title", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "256"}},
			{Name: "section", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "128"}},
			{Name: "content_type", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "32"}},
			{Name: "era", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "64"}},
			{Name: "region", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "64"}},
			{Name: "faction", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "64"}},
			{Name: "year_min", DataType: entity.FieldTypeInt64},
			{Name: "year_max", DataType: entity.FieldTypeInt64},
			{Name: "themes", DataType: entity.FieldTypeVarChar, TypeParams: map[string]string{"max_length": "1024"}},
			{Name: "embedding", DataType: entity.FieldTypeFloatVector, TypeParams: map[string]string{"dim": fmt.Sprintf("%d", m.config.Dimension)}},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, m.config.M, m.config.EfConstruction)
	if err != nil {
		return fmt.Errorf("failed to create index config: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.config.CollectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

// Upsert inserts chunks with their embeddings. Milvus has no native upsert
// for this client version, so existing IDs are deleted first.
func (m *MilvusStore) Upsert(ctx context.Context, chunks []Chunk, embeddings [][]float32) error {
	if len(chunks) == 0 {
		return ErrEmptyChunks
	}
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunks/embeddings length mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	if err := m.Delete(ctx, ids); err != nil {
		return err
	}

	chunkIDs := make([]string, len(chunks))
	texts := make([]string, len(chunks))
	wikiTitles := make([]string, len(chunks))
	sections := make([]string, len(chunks))
	contentTypes := make([]string, len(chunks))
	eras := make([]string, len(chunks))
	regions := make([]string, len(chunks))
	factions := make([]string, len(chunks))
	yearMins := make([]int64, len(chunks))
	yearMaxs := make([]int64, len(chunks))
	themes := make([]string, len(chunks))

	for i, c := range chunks {
		chunkIDs[i] = c.ID
		texts[i] = c.Text
		wikiTitles[i] = c.WikiTitle
		sections[i] = c.Section
		contentTypes[i] = c.Metadata.ContentType
		eras[i] = c.Metadata.Era
		regions[i] = c.Metadata.Region
		factions[i] = c.Metadata.Faction
		if c.Metadata.YearMin != nil {
			yearMins[i] = int64(*c.Metadata.YearMin)
		}
		if c.Metadata.YearMax != nil {
			yearMaxs[i] = int64(*c.Metadata.YearMax)
		}
		themes[i] = strings.Join(c.Metadata.Themes, ",")
	}

	columns := []entity.Column{
		entity.NewColumnVarChar("chunk_id", chunkIDs),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("wiki_title", wikiTitles),
		entity.NewColumnVarChar("section", sections),
		entity.NewColumnVarChar("content_type", contentTypes),
		entity.NewColumnVarChar("era", eras),
		entity.NewColumnVarChar("region", regions),
		entity.NewColumnVarChar("faction", factions),
		entity.NewColumnInt64("year_min", yearMins),
		entity.NewColumnInt64("year_max", yearMaxs),
		entity.NewColumnVarChar("themes", themes),
		entity.NewColumnFloatVector("embedding", m.config.Dimension, embeddings),
	}

	if _, err := m.client.Insert(ctx, m.config.CollectionName, "", columns...); err != nil {
		m.Log.Warn().Err(err).Int("chunk_count", len(chunks)).Msg("insert failed")
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}
	if err := m.client.Flush(ctx, m.config.CollectionName, false); err != nil {
		m.Log.Warn().Err(err).Msg("flush failed")
		return fmt.Errorf("failed to flush data: %w", err)
	}

	return nil
}

// buildExpr translates a Filter into a Milvus boolean expression.
func buildExpr(f Filter) string {
	var clauses []string
	if len(f.ContentTypes) > 0 {
		clauses = append(clauses, inClause("content_type", f.ContentTypes))
	}
	if len(f.Eras) > 0 {
		clauses = append(clauses, inClause("era", f.Eras))
	}
	if len(f.Regions) > 0 {
		clauses = append(clauses, inClause("region", f.Regions))
	}
	if len(f.Factions) > 0 {
		clauses = append(clauses, inClause("faction", f.Factions))
	}
	if f.YearMin != nil {
		clauses = append(clauses, fmt.Sprintf("year_max >= %d", *f.YearMin))
	}
	if f.YearMax != nil {
		clauses = append(clauses, fmt.Sprintf("year_min <= %d", *f.YearMax))
	}
	return strings.Join(clauses, " and ")
}

func inClause(field string, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return fmt.Sprintf("%s in [%s]", field, strings.Join(quoted, ", "))
}

var outputFields = []string{"chunk_id", "text", "wiki_title", "section", "content_type", "era", "region", "faction", "year_min", "year_max", "themes"}

// Query returns chunks matching filter with no similarity ranking.
func (m *MilvusStore) Query(ctx context.Context, filter Filter, limit int) ([]Chunk, error) {
	expr := buildExpr(filter)
	results, err := m.client.Query(ctx, m.config.CollectionName, nil, expr, outputFields)
	if err != nil {
		m.Log.Warn().Err(err).Str("expr", expr).Msg("metadata query failed")
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return columnsToChunks(results, limit), nil
}

// SimilaritySearch ranks chunks by cosine similarity to queryVector.
func (m *MilvusStore) SimilaritySearch(ctx context.Context, queryVector []float32, limit int, filter Filter) ([]Chunk, error) {
	if len(queryVector) != m.config.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(queryVector))
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("failed to create search params: %w", err)
	}

	vectors := []entity.Vector{entity.FloatVector(queryVector)}
	results, err := m.client.Search(
		ctx,
		m.config.CollectionName,
		nil,
		buildExpr(filter),
		outputFields,
		vectors,
		"embedding",
		entity.COSINE,
		limit,
		sp,
	)
	if err != nil {
		m.Log.Warn().Err(err).Msg("similarity search failed")
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	if len(results) == 0 {
		return []Chunk{}, nil
	}

	chunks := make([]Chunk, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		c := chunkFromFields(results[0].Fields, i)
		c.Score = results[0].Scores[i]
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// Delete removes chunks by ID.
func (m *MilvusStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	expr := inClause("chunk_id", ids)
	if err := m.client.Delete(ctx, m.config.CollectionName, "", expr); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// Stats returns collection statistics.
func (m *MilvusStore) Stats(ctx context.Context) (map[string]any, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, m.config.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return map[string]any{"row_count": stats["row_count"]}, nil
}

// Close releases the Milvus connection.
func (m *MilvusStore) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

func columnsToChunks(columns []entity.Column, limit int) []Chunk {
	rowCount := 0
	for _, col := range columns {
		if col.Len() > rowCount {
			rowCount = col.Len()
		}
	}
	if limit > 0 && rowCount > limit {
		rowCount = limit
	}

	chunks := make([]Chunk, rowCount)
	for i := 0; i < rowCount; i++ {
		chunks[i] = chunkFromFields(columns, i)
	}
	return chunks
}

func chunkFromFields(fields []entity.Column, i int) Chunk {
	c := Chunk{Metadata: ChunkMetadata{}}
	for _, field := range fields {
		switch field.Name() {
		case "chunk_id":
			c.ID = field.(*entity.ColumnVarChar).Data()[i]
		case "text":
			c.Text = field.(*entity.ColumnVarChar).Data()[i]
		case "wiki_title":
			c.WikiTitle = field.(*entity.ColumnVarChar).Data()[i]
		case "section":
			c.Section = field.(*entity.ColumnVarChar).Data()[i]
		case "content_type":
			c.Metadata.ContentType = field.(*entity.ColumnVarChar).Data()[i]
		case "era":
			c.Metadata.Era = field.(*entity.ColumnVarChar).Data()[i]
		case "region":
			c.Metadata.Region = field.(*entity.ColumnVarChar).Data()[i]
		case "faction":
			c.Metadata.Faction = field.(*entity.ColumnVarChar).Data()[i]
		case "year_min":
			v := int(field.(*entity.ColumnInt64).Data()[i])
			c.Metadata.YearMin = &v
		case "year_max":
			v := int(field.(*entity.ColumnInt64).Data()[i])
			c.Metadata.YearMax = &v
		case "themes":
			v := field.(*entity.ColumnVarChar).Data()[i]
			if v != "" {
				c.Metadata.Themes = strings.Split(v, ",")
			}
		}
	}
	return c
}
