// Package vectorstore provides vector index implementations for knowledge
// records: an embedded SQLite backend with a native vec0 index and a
// guaranteed-correct linear-scan fallback, plus a chromem-go backend.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector index operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("vectorstore: invalid configuration")

	// ErrEmptyEntry indicates an entry with no id or vector.
	ErrEmptyEntry = errors.New("vectorstore: empty entry")

	// ErrDimensionMismatch indicates a vector whose length differs from
	// the index's configured dimension.
	ErrDimensionMismatch = errors.New("vectorstore: vector dimension mismatch")
)

// Entry is one indexed knowledge record.
type Entry struct {
	// ID is the record id; inserts are idempotent by ID.
	ID string
	// Type is the knowledge type ("decision", "pattern", "task", "insight").
	Type string
	// Snippet is the indexed text, returned with search results.
	Snippet string
	// SessionID is the originating session, used for cascade deletes.
	SessionID string
	// Vector is the embedding; its length must match the index dimension.
	Vector []float32
}

// Match is one ranked search result.
type Match struct {
	ID        string
	Type      string
	Snippet   string
	SessionID string
	// Score is cosine similarity in [-1,1]; backends reporting a distance
	// metric convert with 1-distance before returning.
	Score float64
}

// Index is the vector index contract shared by all backends.
//
// Insert is idempotent by id: re-inserting an existing id updates the entry
// rather than duplicating it. InsertBatch applies all entries in one atomic
// transaction; a failure mid-batch applies nothing.
type Index interface {
	Insert(ctx context.Context, entry Entry) error
	InsertBatch(ctx context.Context, entries []Entry) error

	// Search returns up to k entries ranked by similarity to the query
	// vector, highest first. A non-empty typeFilter restricts results to
	// that knowledge type.
	Search(ctx context.Context, query []float32, k int, typeFilter string) ([]Match, error)

	Delete(ctx context.Context, id string) error
	DeleteBySession(ctx context.Context, sessionID string) error

	Exists(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
	CountByType(ctx context.Context) (map[string]int, error)

	Close() error
}

// Validate checks an entry before insertion.
func (e Entry) Validate(dimension int) error {
	if e.ID == "" || len(e.Vector) == 0 {
		return ErrEmptyEntry
	}
	if len(e.Vector) != dimension {
		return ErrDimensionMismatch
	}
	return nil
}
