// Package search is the retrieval facade: it embeds a query once, delegates
// to the vector index, and hydrates matches against the record store.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/knowledge"
	"github.com/fyrsmithlabs/recalld/internal/session"
	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("recalld/search")

// ErrEmptyQuery indicates a blank search query.
var ErrEmptyQuery = errors.New("search: query cannot be empty")

// Result is one hydrated search hit.
type Result struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`

	// Record is the full knowledge record; nil for session summary hits.
	Record knowledge.Record `json:"record,omitempty"`

	// Session is the session metadata for session-<id> hits; nil otherwise.
	Session *session.Meta `json:"session,omitempty"`
}

// Service resolves queries against the index and the record store.
type Service struct {
	provider embeddings.Provider
	index    vectorstore.Index
	records  *knowledge.Store
	sessions *session.MetaStore
	logger   *zap.Logger
}

// NewService creates the retrieval facade. sessions may be nil when session
// summaries are not indexed.
func NewService(provider embeddings.Provider, index vectorstore.Index, records *knowledge.Store, sessions *session.MetaStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		provider: provider,
		index:    index,
		records:  records,
		sessions: sessions,
		logger:   logger,
	}
}

// Search embeds the query once and returns up to k hydrated results.
//
// typeFilter restricts results to one knowledge type when non-empty. Index
// hits whose records no longer resolve are dropped silently; a stale index
// entry must never surface as an error or an empty-shell result.
func (s *Service) Search(ctx context.Context, query string, k int, typeFilter string) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "search.Search")
	defer span.End()
	span.SetAttributes(
		attribute.Int("k", k),
		attribute.String("type_filter", typeFilter),
	)

	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if k <= 0 {
		k = 5
	}
	if typeFilter != "" && typeFilter != "session" {
		if _, err := knowledge.ParseType(typeFilter); err != nil {
			return nil, err
		}
	}

	vector, err := s.provider.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := s.index.Search(ctx, vector, k, typeFilter)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	set, err := s.records.Load()
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		result, ok := s.hydrate(set, m)
		if !ok {
			s.logger.Debug("dropping orphaned search hit", zap.String("id", m.ID))
			continue
		}
		results = append(results, result)
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}

// hydrate resolves one index match to its record or session metadata.
func (s *Service) hydrate(set *knowledge.Set, m vectorstore.Match) (Result, bool) {
	result := Result{
		ID:      m.ID,
		Type:    m.Type,
		Score:   m.Score,
		Snippet: m.Snippet,
	}

	if sessionID, ok := strings.CutPrefix(m.ID, "session-"); ok {
		if s.sessions == nil {
			return Result{}, false
		}
		meta, found, err := s.sessions.Get(sessionID)
		if err != nil || !found {
			return Result{}, false
		}
		result.Session = &meta
		return result, true
	}

	rec, err := set.FindByID(m.ID)
	if err != nil {
		return Result{}, false
	}
	result.Record = rec
	return result, true
}
