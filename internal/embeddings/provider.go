// Package embeddings provides embedding generation via multiple providers.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates an unusable provider configuration.
	ErrInvalidConfig = errors.New("embeddings: invalid config")
	// ErrEmptyInput indicates an empty text or batch.
	ErrEmptyInput = errors.New("embeddings: empty input")
	// ErrEmbeddingFailed wraps provider-level embedding failures.
	ErrEmbeddingFailed = errors.New("embeddings: embedding failed")
)

// Provider is the interface for embedding providers.
type Provider interface {
	// EmbedDocuments generates embeddings for a batch of texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider type: "fastembed" or "static".
	Provider string
	// Model is the embedding model name.
	Model string
	// CacheDir is the model cache directory (only used by FastEmbed).
	CacheDir string
	// MaxInputChars caps input length; longer texts are truncated.
	// Defaults to 8000.
	MaxInputChars int
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	maxChars := cfg.MaxInputChars
	if maxChars <= 0 {
		maxChars = 8000
	}

	switch cfg.Provider {
	case "fastembed", "":
		p, err := NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
		if err != nil {
			return nil, err
		}
		return &truncating{Provider: p, maxChars: maxChars}, nil
	case "static":
		return &truncating{Provider: NewStaticProvider(0), maxChars: maxChars}, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// truncating wraps a Provider and caps input length before delegating.
type truncating struct {
	Provider
	maxChars int
}

func (t *truncating) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	capped := make([]string, len(texts))
	for i, text := range texts {
		capped[i] = truncate(text, t.maxChars)
	}
	return t.Provider.EmbedDocuments(ctx, capped)
}

func (t *truncating) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return t.Provider.EmbedQuery(ctx, truncate(text, t.maxChars))
}

// truncate caps text at maxChars without splitting a UTF-8 sequence.
func truncate(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut]
}
