package vectorstore

import (
	"context"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ChromemConfig holds configuration for the chromem backend.
type ChromemConfig struct {
	// Path is the persistence directory.
	Path string
	// Collection is the collection name.
	Collection string
	// VectorSize is the embedding dimension.
	VectorSize int
}

// ChromemIndex stores entries in an embedded chromem-go database. chromem
// always searches exhaustively, so there is no native/fallback split here.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimension  int
	logger     *zap.Logger
}

// NewChromemIndex opens (creating if needed) a persistent chromem index.
func NewChromemIndex(cfg ChromemConfig, logger *zap.Logger) (*ChromemIndex, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection is required", ErrInvalidConfig)
	}
	if cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating chromem directory: %w", err)
	}

	db, err := chromem.NewPersistentDB(cfg.Path, false)
	if err != nil {
		return nil, fmt.Errorf("opening chromem database: %w", err)
	}

	// Callers always pass precomputed vectors, so the embedding func only
	// guards against accidental content-based queries.
	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("index queries require precomputed vectors")
	})
	if err != nil {
		return nil, fmt.Errorf("opening chromem collection %s: %w", cfg.Collection, err)
	}

	return &ChromemIndex{
		db:         db,
		collection: collection,
		dimension:  cfg.VectorSize,
		logger:     logger,
	}, nil
}

// Insert adds or replaces one entry.
func (c *ChromemIndex) Insert(ctx context.Context, entry Entry) error {
	return c.InsertBatch(ctx, []Entry{entry})
}

// InsertBatch adds or replaces entries. chromem applies documents to an
// in-memory map keyed by id, so re-inserting an id replaces it.
func (c *ChromemIndex) InsertBatch(ctx context.Context, entries []Entry) (err error) {
	ctx, span := tracer.Start(ctx, "vectorstore.chromem.InsertBatch")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int("entries", len(entries)))

	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(entries))
	for i, entry := range entries {
		if err := entry.Validate(c.dimension); err != nil {
			return err
		}
		docs[i] = chromem.Document{
			ID:        entry.ID,
			Content:   entry.Snippet,
			Embedding: entry.Vector,
			Metadata: map[string]string{
				"type":       entry.Type,
				"session_id": entry.SessionID,
			},
		}
	}

	if err := c.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}
	return nil
}

// Search returns up to k entries ranked by similarity, highest first.
//
// Type filtering happens in Go over an exhaustive result set: chromem
// rejects nResults larger than the filtered document count, so pushing the
// filter into the query would make k an error instead of a cap.
func (c *ChromemIndex) Search(ctx context.Context, query []float32, k int, typeFilter string) (matches []Match, err error) {
	ctx, span := tracer.Start(ctx, "vectorstore.chromem.Search")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.Int("k", k),
		attribute.String("type_filter", typeFilter),
	)

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(query) != c.dimension {
		return nil, ErrDimensionMismatch
	}

	total := c.collection.Count()
	if total == 0 {
		return []Match{}, nil
	}

	fetch := k
	if typeFilter != "" || fetch > total {
		fetch = total
	}

	results, err := c.collection.QueryEmbedding(ctx, query, fetch, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	for _, r := range results {
		typ := r.Metadata["type"]
		if typeFilter != "" && typ != typeFilter {
			continue
		}
		matches = append(matches, Match{
			ID:        r.ID,
			Type:      typ,
			Snippet:   r.Content,
			SessionID: r.Metadata["session_id"],
			Score:     float64(r.Similarity),
		})
		if len(matches) == k {
			break
		}
	}
	if matches == nil {
		matches = []Match{}
	}
	return matches, nil
}

// Delete removes an entry by id. Deleting a missing id is a no-op.
func (c *ChromemIndex) Delete(ctx context.Context, id string) error {
	if c.collection.Count() == 0 {
		return nil
	}
	return c.collection.Delete(ctx, nil, nil, id)
}

// DeleteBySession removes every entry captured from one session.
func (c *ChromemIndex) DeleteBySession(ctx context.Context, sessionID string) error {
	if c.collection.Count() == 0 {
		return nil
	}
	return c.collection.Delete(ctx, map[string]string{"session_id": sessionID}, nil)
}

// Exists reports whether an entry with the given id is indexed.
func (c *ChromemIndex) Exists(ctx context.Context, id string) (bool, error) {
	if _, err := c.collection.GetByID(ctx, id); err != nil {
		return false, nil
	}
	return true, nil
}

// Count returns the number of indexed entries.
func (c *ChromemIndex) Count(ctx context.Context) (int, error) {
	return c.collection.Count(), nil
}

// CountByType returns entry counts keyed by knowledge type.
func (c *ChromemIndex) CountByType(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	total := c.collection.Count()
	if total == 0 {
		return counts, nil
	}

	// chromem has no enumeration API; an exhaustive query against a unit
	// probe vector returns every document with its metadata.
	probe := make([]float32, c.dimension)
	probe[0] = 1
	results, err := c.collection.QueryEmbedding(ctx, probe, total, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("enumerating collection: %w", err)
	}
	for _, r := range results {
		counts[r.Metadata["type"]]++
	}
	return counts, nil
}

// Close is a no-op; chromem persists on every write.
func (c *ChromemIndex) Close() error {
	return nil
}

var _ Index = (*ChromemIndex)(nil)
var _ Index = (*SQLiteIndex)(nil)
