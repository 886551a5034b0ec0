package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// StaticProvider generates deterministic embeddings from token hashes. It
// needs no model files or network, which makes it the provider of choice for
// tests and offline smoke runs. Texts sharing tokens land near each other
// under cosine similarity, so relative-similarity assertions hold.
type StaticProvider struct {
	dimension int
}

// NewStaticProvider creates a static provider. A non-positive dimension
// selects the 384 default shared with bge-small.
func NewStaticProvider(dimension int) *StaticProvider {
	if dimension <= 0 {
		dimension = 384
	}
	return &StaticProvider{dimension: dimension}
}

// EmbedDocuments generates deterministic embeddings for a batch of texts.
func (p *StaticProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.embed(text)
	}
	return out, nil
}

// EmbedQuery generates a deterministic embedding for a single text.
func (p *StaticProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	return p.embed(text), nil
}

// Dimension returns the embedding dimension.
func (p *StaticProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op for the static provider.
func (p *StaticProvider) Close() error {
	return nil
}

// embed hashes each lowercase token into two buckets with opposite signs and
// L2-normalizes the result. Empty or token-free text maps to a unit vector
// on the first axis so cosine math never divides by zero.
func (p *StaticProvider) embed(text string) []float32 {
	vec := make([]float32, p.dimension)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		vec[sum%uint64(p.dimension)] += 1
		vec[(sum>>32)%uint64(p.dimension)] -= 0.5
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
