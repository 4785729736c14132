package rag

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewOpenAIEmbedder_MissingAPIKey(t *testing.T) {
	old, had := os.LookupEnv("OPENAI_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")
	defer func() {
		if had {
			os.Setenv("OPENAI_API_KEY", old)
		}
	}()

	_, err := NewOpenAIEmbedder("text-embedding-3-small", 1536, zerolog.Nop())
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestOpenAIEmbedder_Embed_EmptyTexts(t *testing.T) {
	e := &OpenAIEmbedder{Model: "text-embedding-3-small", Dimension: 1536}

	_, err := e.Embed(context.Background(), nil)
	if !errors.Is(err, ErrEmptyTexts) {
		t.Fatalf("expected ErrEmptyTexts, got %v", err)
	}
}
