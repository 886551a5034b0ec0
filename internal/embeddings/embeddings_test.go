package embeddings

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestStaticProviderDeterministic(t *testing.T) {
	p := NewStaticProvider(64)
	ctx := context.Background()

	a, err := p.EmbedQuery(ctx, "use sqlite for persistence")
	require.NoError(t, err)
	b, err := p.EmbedQuery(ctx, "use sqlite for persistence")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestStaticProviderRelativeSimilarity(t *testing.T) {
	p := NewStaticProvider(384)
	ctx := context.Background()

	base, err := p.EmbedQuery(ctx, "decided to use sqlite for local persistence")
	require.NoError(t, err)
	near, err := p.EmbedQuery(ctx, "we use sqlite for persistence of local data")
	require.NoError(t, err)
	far, err := p.EmbedQuery(ctx, "the parser tokenizes markdown fences and headers")
	require.NoError(t, err)

	assert.Greater(t, cosine(base, near), cosine(base, far))
}

func TestStaticProviderUnitNorm(t *testing.T) {
	p := NewStaticProvider(128)
	vec, err := p.EmbedQuery(context.Background(), "normalized output expected")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestStaticProviderEmptyInputs(t *testing.T) {
	p := NewStaticProvider(16)
	ctx := context.Background()

	_, err := p.EmbedQuery(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = p.EmbedDocuments(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	// Punctuation-only text still yields a valid unit vector.
	vec, err := p.EmbedQuery(ctx, "!!! ???")
	require.NoError(t, err)
	assert.Equal(t, float32(1), vec[0])
}

func TestStaticProviderBatch(t *testing.T) {
	p := NewStaticProvider(32)
	got, err := p.EmbedDocuments(context.Background(), []string{"one fish", "two fish"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0], got[1])
}

func TestStaticProviderCancelledContext(t *testing.T) {
	p := NewStaticProvider(16)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.EmbedQuery(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewProviderStatic(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Provider: "static"})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 384, p.Dimension())
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider(ProviderConfig{Provider: "nope"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTruncation(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Provider: "static", MaxInputChars: 40})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	long := strings.Repeat("alpha beta ", 50)

	full, err := p.EmbedQuery(ctx, long)
	require.NoError(t, err)
	short, err := p.EmbedQuery(ctx, long[:40])
	require.NoError(t, err)
	assert.Equal(t, short, full)
}

func TestTruncateRespectsUTF8(t *testing.T) {
	// Cutting inside a multi-byte rune backs up to the rune start.
	s := "abécd" // é is two bytes, starting at index 2
	assert.Equal(t, "ab", truncate(s, 3))
	assert.Equal(t, s, truncate(s, 100))
}
