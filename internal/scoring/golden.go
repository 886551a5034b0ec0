package scoring

import (
	"context"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/knowledge"
)

// goldenExamples is the curated comparison bank per knowledge type. A
// candidate passes when its best cosine similarity against its type's bank
// clears the configured threshold.
var goldenExamples = map[knowledge.Type][]string{
	knowledge.TypeDecision: {
		"We decided to use PostgreSQL instead of MongoDB because we need transactional guarantees",
		"Chose React Query over Redux for server state management to reduce boilerplate",
		"Going with a monorepo layout so shared packages stay in lockstep",
		"We settled on gRPC for internal service communication due to schema enforcement",
		"Opted for feature flags over long-lived branches to keep main deployable",
		"Decided to store timestamps in UTC everywhere and convert at the edge",
		"We will standardize on structured JSON logging across all services",
	},
	knowledge.TypePattern: {
		"All API handlers return a typed error wrapper that middleware converts to status codes",
		"By convention, database migrations are numbered and never edited after merge",
		"Every exported function gets a doc comment starting with its name",
		"Repository structs accept interfaces and return concrete types",
		"Configuration is loaded once at startup and passed down explicitly, never read from globals",
		"Test fixtures live next to the code they exercise, not in a shared directory",
		"Background workers always take a context and stop cleanly on cancellation",
	},
	knowledge.TypeTask: {
		"Need to add integration tests for the payment webhook handler",
		"TODO: migrate the session store off the legacy schema before the next release",
		"Should refactor the retry logic to use exponential backoff",
		"Must update the deployment docs after the config format change",
		"Remaining work: wire the new rate limiter into the public API routes",
		"Don't forget to rotate the staging credentials after the demo",
	},
	knowledge.TypeInsight: {
		"Turns out the N+1 query problem was caused by lazy loading in the ORM default config",
		"Discovered that the flaky test only fails when the suite runs in parallel",
		"The root cause was a stale DNS cache entry surviving container restarts",
		"Interestingly, compression made small payloads slower due to fixed overhead",
		"Realized that the memory growth came from unbounded response caching, not a leak",
		"Learned that the vendor API silently truncates batch requests over 100 items",
		"Surprisingly, the linear scan outperforms the index below ten thousand rows",
	},
}

// goldenBank caches golden-example embeddings process-wide. The first score
// call pays the embedding cost; later calls reuse the vectors. Reset exists
// for tests that swap providers.
type goldenBank struct {
	mu   sync.Mutex
	vecs map[knowledge.Type][][]float32
}

var bank goldenBank

// vectors returns the cached golden embeddings, computing them on first use.
func (b *goldenBank) vectors(ctx context.Context, provider embeddings.Provider) (map[knowledge.Type][][]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.vecs != nil {
		return b.vecs, nil
	}

	vecs := make(map[knowledge.Type][][]float32, len(goldenExamples))
	for typ, examples := range goldenExamples {
		embedded, err := provider.EmbedDocuments(ctx, examples)
		if err != nil {
			return nil, fmt.Errorf("embedding golden bank for %s: %w", typ, err)
		}
		vecs[typ] = embedded
	}

	b.vecs = vecs
	return vecs, nil
}

// ResetGoldenCache clears the process-wide golden embedding cache.
func ResetGoldenCache() {
	bank.mu.Lock()
	defer bank.mu.Unlock()
	bank.vecs = nil
}
