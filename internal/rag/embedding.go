package rag

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
)

func init() {
	_ = godotenv.Load("../../.env")
}

// Common errors for embedding operations.
var (
	ErrEmptyTexts      = errors.New("no texts provided for embedding")
	ErrMissingAPIKey   = errors.New("OPENAI_API_KEY environment variable not set")
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// OpenAIEmbedder implements Embedder using OpenAI's embeddings API.
type OpenAIEmbedder struct {
	client    openai.Client
	Model     string
	Dimension int
	Log       zerolog.Logger
}

// NewOpenAIEmbedder creates a new OpenAI embedder instance.
func NewOpenAIEmbedder(model string, dimension int, log zerolog.Logger) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &OpenAIEmbedder{
		client:    client,
		Model:     model,
		Dimension: dimension,
		Log:       log.With().Str("component", "embedder").Logger(),
	}, nil
}

// Embed generates embeddings for the provided texts.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Model:          e.Model,
		Dimensions:     openai.Int(int64(e.Dimension)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		e.Log.Warn().Err(err).Str("model", e.Model).Int("text_count", len(texts)).Msg("embedding request failed")
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	embeddings := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		vec := make([]float32, len(data.Embedding))
		for j, val := range data.Embedding {
			vec[j] = float32(val)
		}
		embeddings[int(data.Index)] = vec
	}

	return embeddings, nil
}
