// Package session implements the capture pipeline: extraction, scoring,
// classification, session merge, record persistence and vector indexing,
// plus session metadata with bounded retention.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Meta is per-session metadata. Pruning removes Meta entries only; knowledge
// records and their embeddings survive their session's metadata.
type Meta struct {
	ID        string    `json:"id"`
	Summary   string    `json:"summary,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// RecordCounts is the per-type count captured from this session.
	RecordCounts map[string]int `json:"record_counts,omitempty"`

	// Changes are workspace file events drained from the pending-changes
	// log at capture time.
	Changes []Change `json:"changes,omitempty"`
}

// MetaStore persists session metadata as a single JSON file, newest last.
type MetaStore struct {
	path        string
	maxSessions int
	logger      *zap.Logger
	mu          sync.Mutex
}

// NewMetaStore creates a session metadata store. maxSessions bounds
// retention; zero or negative disables pruning.
func NewMetaStore(path string, maxSessions int, logger *zap.Logger) *MetaStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaStore{path: path, maxSessions: maxSessions, logger: logger}
}

// Load reads all session metadata. A missing or malformed file yields an
// empty list.
func (m *MetaStore) Load() ([]Meta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked()
}

func (m *MetaStore) loadLocked() ([]Meta, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session store: %w", err)
	}

	var sessions []Meta
	if err := json.Unmarshal(data, &sessions); err != nil {
		m.logger.Warn("session store is malformed, starting empty",
			zap.String("path", m.path),
			zap.Error(err))
		return nil, nil
	}
	return sessions, nil
}

// Get returns the metadata for one session.
func (m *MetaStore) Get(id string) (Meta, bool, error) {
	sessions, err := m.Load()
	if err != nil {
		return Meta{}, false, err
	}
	for _, s := range sessions {
		if s.ID == id {
			return s, true, nil
		}
	}
	return Meta{}, false, nil
}

// Upsert inserts or replaces one session's metadata, then prunes the oldest
// entries beyond the retention bound.
func (m *MetaStore) Upsert(meta Meta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.loadLocked()
	if err != nil {
		return err
	}

	replaced := false
	for i := range sessions {
		if sessions[i].ID == meta.ID {
			sessions[i] = meta
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, meta)
	}

	if m.maxSessions > 0 && len(sessions) > m.maxSessions {
		sort.SliceStable(sessions, func(i, j int) bool {
			return sessions[i].UpdatedAt.Before(sessions[j].UpdatedAt)
		})
		pruned := len(sessions) - m.maxSessions
		m.logger.Info("pruning session metadata",
			zap.Int("pruned", pruned),
			zap.Int("retained", m.maxSessions))
		sessions = sessions[pruned:]
	}

	return m.saveLocked(sessions)
}

// Remove deletes one session's metadata. Reports whether it existed.
func (m *MetaStore) Remove(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.loadLocked()
	if err != nil {
		return false, err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			sessions = append(sessions[:i], sessions[i+1:]...)
			return true, m.saveLocked(sessions)
		}
	}
	return false, nil
}

func (m *MetaStore) saveLocked(sessions []Meta) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("creating session store directory: %w", err)
	}
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session store: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing session store: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replacing session store: %w", err)
	}
	return nil
}
