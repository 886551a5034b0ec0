package session

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/extraction"
	"github.com/fyrsmithlabs/recalld/internal/knowledge"
	"github.com/fyrsmithlabs/recalld/internal/scoring"
	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("recalld/session")

// Service runs the capture pipeline: extract candidates, score them,
// classify, merge with the session's prior records, persist, and index.
type Service struct {
	extractor *extraction.Extractor
	scorer    *scoring.Scorer
	provider  embeddings.Provider
	records   *knowledge.Store
	index     vectorstore.Index
	meta      *MetaStore
	changelog *ChangeLog
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the capture pipeline. changelog may be nil when no
// tracker runs.
func NewService(
	extractor *extraction.Extractor,
	scorer *scoring.Scorer,
	provider embeddings.Provider,
	records *knowledge.Store,
	index vectorstore.Index,
	meta *MetaStore,
	changelog *ChangeLog,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		extractor: extractor,
		scorer:    scorer,
		provider:  provider,
		records:   records,
		index:     index,
		meta:      meta,
		changelog: changelog,
		logger:    logger,
		now:       time.Now,
	}
}

// CaptureResult summarizes one capture pass.
type CaptureResult struct {
	SessionID  string                 `json:"session_id"`
	Candidates int                    `json:"candidates"`
	Accepted   int                    `json:"accepted"`
	Rejected   int                    `json:"rejected"`
	ByType     map[knowledge.Type]int `json:"by_type"`
}

// Capture processes one text block for a session.
//
// Marker candidates skip similarity scoring; heuristic candidates must pass
// the scorer. Re-capturing a session merges overwrite-by-key with its prior
// records, and the merged set entirely replaces the session's persisted
// records and embeddings.
func (s *Service) Capture(ctx context.Context, sessionID, text string) (CaptureResult, error) {
	ctx, span := tracer.Start(ctx, "session.Capture")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID))

	if sessionID == "" {
		return CaptureResult{}, fmt.Errorf("session id is required")
	}

	result := CaptureResult{
		SessionID: sessionID,
		ByType:    make(map[knowledge.Type]int),
	}

	candidates := s.extractor.Extract(text)
	result.Candidates = len(candidates)

	var fresh []knowledge.Record
	for _, cand := range candidates {
		if !cand.FromMarker {
			res := s.scorer.Score(ctx, cand.Text, cand.Type)
			if !res.Passed {
				result.Rejected++
				s.logger.Debug("candidate rejected",
					zap.String("type", string(cand.Type)),
					zap.Float64("score", res.Score),
					zap.Strings("reasons", res.Reasons))
				continue
			}
		}
		fresh = append(fresh, s.buildRecord(sessionID, cand))
	}

	merged, err := s.persist(ctx, sessionID, fresh)
	if err != nil {
		return result, err
	}

	result.Accepted = len(merged)
	for _, rec := range merged {
		result.ByType[rec.Kind()]++
	}

	if err := s.reindexSession(ctx, sessionID, merged); err != nil {
		return result, err
	}

	if err := s.updateMeta(ctx, sessionID, merged); err != nil {
		return result, err
	}

	s.logger.Info("capture complete",
		zap.String("session_id", sessionID),
		zap.Int("candidates", result.Candidates),
		zap.Int("accepted", result.Accepted),
		zap.Int("rejected", result.Rejected))
	return result, nil
}

// persist merges fresh records into the session's prior set (later wins per
// key) and replaces the session's persisted records with the result.
func (s *Service) persist(ctx context.Context, sessionID string, fresh []knowledge.Record) ([]knowledge.Record, error) {
	var merged []knowledge.Record
	err := s.records.Update(func(set *knowledge.Set) error {
		prior := knowledge.CloneRecords(set.SessionRecords(sessionID))
		merged = knowledge.MergeSession(prior, fresh)
		set.RemoveSession(sessionID)
		for _, rec := range merged {
			if err := set.Add(rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persisting records: %w", err)
	}
	return merged, nil
}

// AddRecord stores one manually authored record for a session, bypassing
// extraction and scoring. It goes through the same merge and reindex path as
// Capture, so re-adding the same key overwrites.
func (s *Service) AddRecord(ctx context.Context, sessionID string, typ knowledge.Type, label, text string) (knowledge.Record, error) {
	ctx, span := tracer.Start(ctx, "session.AddRecord")
	defer span.End()
	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("type", string(typ)),
	)

	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	rec := s.buildRecord(sessionID, extraction.Candidate{
		Type:  typ,
		Label: label,
		Text:  text,
	})
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	merged, err := s.persist(ctx, sessionID, []knowledge.Record{rec})
	if err != nil {
		return nil, err
	}
	if err := s.reindexSession(ctx, sessionID, merged); err != nil {
		return nil, err
	}
	if err := s.updateMeta(ctx, sessionID, merged); err != nil {
		return nil, err
	}
	return rec, nil
}

// buildRecord converts an accepted candidate into a typed record.
func (s *Service) buildRecord(sessionID string, cand extraction.Candidate) knowledge.Record {
	now := s.now()
	id := s.records.GenerateID()

	switch cand.Type {
	case knowledge.TypeDecision:
		topic := cand.Label
		if topic == "" {
			topic = knowledge.ClassifyTopic(cand.Text)
		}
		return &knowledge.Decision{
			ID:        id,
			Topic:     topic,
			Decision:  cand.Text,
			Rationale: cand.Rationale,
			SessionID: sessionID,
			Timestamp: now,
		}
	case knowledge.TypePattern:
		name := cand.Label
		if name == "" {
			name = knowledge.DeriveName(cand.Text)
		}
		return &knowledge.Pattern{
			ID:          id,
			Name:        name,
			Description: cand.Text,
			Usage:       cand.Usage,
			SessionID:   sessionID,
			Timestamp:   now,
		}
	case knowledge.TypeTask:
		return &knowledge.Task{
			ID:             id,
			Title:          cand.Text,
			Status:         knowledge.TaskPending,
			SessionCreated: sessionID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	default:
		return &knowledge.Insight{
			ID:        id,
			Content:   cand.Text,
			SessionID: sessionID,
			Timestamp: now,
		}
	}
}

// reindexSession replaces the session's embeddings with the merged set,
// delete-then-reinsert. The multi-record insert is one transaction; a batch
// embed failure applies nothing.
func (s *Service) reindexSession(ctx context.Context, sessionID string, merged []knowledge.Record) error {
	ctx, span := tracer.Start(ctx, "session.reindex")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(merged)))

	if err := s.index.DeleteBySession(ctx, sessionID); err != nil {
		return fmt.Errorf("clearing session embeddings: %w", err)
	}
	if len(merged) == 0 {
		return nil
	}

	texts := make([]string, len(merged))
	for i, rec := range merged {
		texts[i] = rec.EmbeddingText()
	}
	vectors, err := s.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding session records: %w", err)
	}

	entries := make([]vectorstore.Entry, len(merged))
	for i, rec := range merged {
		entries[i] = vectorstore.Entry{
			ID:        rec.RecordID(),
			Type:      string(rec.Kind()),
			Snippet:   texts[i],
			SessionID: sessionID,
			Vector:    vectors[i],
		}
	}
	if err := s.index.InsertBatch(ctx, entries); err != nil {
		return fmt.Errorf("indexing session records: %w", err)
	}
	return nil
}

// updateMeta upserts session metadata, drains pending workspace changes,
// and indexes the synthetic session-<id> entry that makes sessions
// themselves searchable.
func (s *Service) updateMeta(ctx context.Context, sessionID string, merged []knowledge.Record) error {
	var changes []Change
	if s.changelog != nil {
		drained, err := s.changelog.Drain(ctx)
		if err != nil {
			s.logger.Warn("draining changelog failed", zap.Error(err))
		} else {
			changes = drained
		}
	}

	summary := sessionSummary(merged)
	now := s.now()

	meta, found, err := s.meta.Get(sessionID)
	if err != nil {
		return fmt.Errorf("loading session metadata: %w", err)
	}
	if !found {
		meta = Meta{ID: sessionID, StartedAt: now}
	}
	meta.Summary = summary
	meta.UpdatedAt = now
	meta.Changes = append(meta.Changes, changes...)
	meta.RecordCounts = make(map[string]int)
	for _, rec := range merged {
		meta.RecordCounts[string(rec.Kind())]++
	}
	if err := s.meta.Upsert(meta); err != nil {
		return fmt.Errorf("saving session metadata: %w", err)
	}

	if summary == "" {
		return nil
	}
	vector, err := s.provider.EmbedQuery(ctx, summary)
	if err != nil {
		return fmt.Errorf("embedding session summary: %w", err)
	}
	entry := vectorstore.Entry{
		ID:        "session-" + sessionID,
		Type:      "session",
		Snippet:   summary,
		SessionID: sessionID,
		Vector:    vector,
	}
	if err := s.index.Insert(ctx, entry); err != nil {
		return fmt.Errorf("indexing session summary: %w", err)
	}
	return nil
}

// sessionSummary derives a one-line summary from the session's records:
// the first decision, else the first record of any type.
func sessionSummary(records []knowledge.Record) string {
	for _, rec := range records {
		if rec.Kind() == knowledge.TypeDecision {
			return rec.EmbeddingText()
		}
	}
	if len(records) > 0 {
		return records[0].EmbeddingText()
	}
	return ""
}

// Prune removes session metadata only. Knowledge records and embeddings
// captured from the session stay searchable.
func (s *Service) Prune(ctx context.Context, sessionID string) (bool, error) {
	_, span := tracer.Start(ctx, "session.Prune")
	defer span.End()

	removed, err := s.meta.Remove(sessionID)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Info("pruned session metadata", zap.String("session_id", sessionID))
	}
	return removed, nil
}

// CompleteTask transitions a task to completed, stamping the completing
// session.
func (s *Service) CompleteTask(ctx context.Context, taskID, sessionID string) error {
	return s.records.Update(func(set *knowledge.Set) error {
		rec, err := set.FindByID(taskID)
		if err != nil {
			return err
		}
		task, ok := rec.(*knowledge.Task)
		if !ok {
			return fmt.Errorf("%w: %s is a %s, not a task", knowledge.ErrUnknownType, taskID, rec.Kind())
		}
		task.Complete(sessionID, s.now())
		return nil
	})
}

// CancelTask transitions a task to cancelled.
func (s *Service) CancelTask(ctx context.Context, taskID string) error {
	return s.records.Update(func(set *knowledge.Set) error {
		rec, err := set.FindByID(taskID)
		if err != nil {
			return err
		}
		task, ok := rec.(*knowledge.Task)
		if !ok {
			return fmt.Errorf("%w: %s is a %s, not a task", knowledge.ErrUnknownType, taskID, rec.Kind())
		}
		task.Cancel(s.now())
		return nil
	})
}

// Stats reports store and index counts.
type Stats struct {
	Records  map[knowledge.Type]int `json:"records"`
	Indexed  int                    `json:"indexed"`
	ByType   map[string]int         `json:"indexed_by_type"`
	Sessions int                    `json:"sessions"`
}

// Stats gathers counts across the record store, the index and session
// metadata.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	set, err := s.records.Load()
	if err != nil {
		return Stats{}, err
	}
	indexed, err := s.index.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	byType, err := s.index.CountByType(ctx)
	if err != nil {
		return Stats{}, err
	}
	sessions, err := s.meta.Load()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Records:  set.Counts(),
		Indexed:  indexed,
		ByType:   byType,
		Sessions: len(sessions),
	}, nil
}
