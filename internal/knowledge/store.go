package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Set is the serialized shape of the record store: all live records grouped
// by type, with stable field names.
type Set struct {
	Decisions []Decision `json:"decisions"`
	Patterns  []Pattern  `json:"patterns"`
	Tasks     []Task     `json:"tasks"`
	Insights  []Insight  `json:"insights"`
}

// All returns every record in the set, decisions first.
func (s *Set) All() []Record {
	records := make([]Record, 0, len(s.Decisions)+len(s.Patterns)+len(s.Tasks)+len(s.Insights))
	for i := range s.Decisions {
		records = append(records, &s.Decisions[i])
	}
	for i := range s.Patterns {
		records = append(records, &s.Patterns[i])
	}
	for i := range s.Tasks {
		records = append(records, &s.Tasks[i])
	}
	for i := range s.Insights {
		records = append(records, &s.Insights[i])
	}
	return records
}

// FindByID returns the record with the given id.
func (s *Set) FindByID(id string) (Record, error) {
	for _, rec := range s.All() {
		if rec.RecordID() == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
}

// RemoveByID deletes the record with the given id. Reports whether a
// record was removed.
func (s *Set) RemoveByID(id string) bool {
	for i := range s.Decisions {
		if s.Decisions[i].ID == id {
			s.Decisions = append(s.Decisions[:i], s.Decisions[i+1:]...)
			return true
		}
	}
	for i := range s.Patterns {
		if s.Patterns[i].ID == id {
			s.Patterns = append(s.Patterns[:i], s.Patterns[i+1:]...)
			return true
		}
	}
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			s.Tasks = append(s.Tasks[:i], s.Tasks[i+1:]...)
			return true
		}
	}
	for i := range s.Insights {
		if s.Insights[i].ID == id {
			s.Insights = append(s.Insights[:i], s.Insights[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveByType removes every record of typ and returns the removed ids.
func (s *Set) RemoveByType(typ Type) []string {
	var ids []string
	switch typ {
	case TypeDecision:
		for i := range s.Decisions {
			ids = append(ids, s.Decisions[i].ID)
		}
		s.Decisions = nil
	case TypePattern:
		for i := range s.Patterns {
			ids = append(ids, s.Patterns[i].ID)
		}
		s.Patterns = nil
	case TypeTask:
		for i := range s.Tasks {
			ids = append(ids, s.Tasks[i].ID)
		}
		s.Tasks = nil
	case TypeInsight:
		for i := range s.Insights {
			ids = append(ids, s.Insights[i].ID)
		}
		s.Insights = nil
	}
	return ids
}

// SessionRecords returns all records originating in sessionID.
func (s *Set) SessionRecords(sessionID string) []Record {
	var out []Record
	for _, rec := range s.All() {
		if rec.Session() == sessionID {
			out = append(out, rec)
		}
	}
	return out
}

// RemoveSession deletes every record originating in sessionID and returns
// the removed ids. Used by the overwrite-by-key merge (delete-then-reinsert),
// never by session pruning.
func (s *Set) RemoveSession(sessionID string) []string {
	var ids []string
	for _, rec := range s.SessionRecords(sessionID) {
		ids = append(ids, rec.RecordID())
	}
	for _, id := range ids {
		s.RemoveByID(id)
	}
	return ids
}

// Add appends a record to its type slice.
func (s *Set) Add(rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	switch r := rec.(type) {
	case *Decision:
		s.Decisions = append(s.Decisions, *r)
	case *Pattern:
		s.Patterns = append(s.Patterns, *r)
	case *Task:
		s.Tasks = append(s.Tasks, *r)
	case *Insight:
		s.Insights = append(s.Insights, *r)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownType, rec)
	}
	return nil
}

// Counts returns record counts per type.
func (s *Set) Counts() map[Type]int {
	return map[Type]int{
		TypeDecision: len(s.Decisions),
		TypePattern:  len(s.Patterns),
		TypeTask:     len(s.Tasks),
		TypeInsight:  len(s.Insights),
	}
}

// Store persists a Set as a single JSON file.
//
// Loads never fail on malformed content: an unreadable or schema-invalid
// file yields an empty set (logged), so a corrupted store cannot block
// startup. Saves are atomic (write temp file, rename).
type Store struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStore creates a record store backed by the JSON file at path.
func NewStore(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// GenerateID returns a new opaque record id. IDs are never reused.
func (s *Store) GenerateID() string {
	return uuid.New().String()
}

// Load reads the full record set from disk.
func (s *Store) Load() (*Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (*Set, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Set{}, nil
		}
		return nil, fmt.Errorf("reading record store: %w", err)
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		s.logger.Warn("record store is malformed, starting empty",
			zap.String("path", s.path),
			zap.Error(err))
		return &Set{}, nil
	}

	// Drop records that fail validation instead of poisoning consumers.
	valid := Set{}
	for _, rec := range set.All() {
		if err := rec.Validate(); err != nil {
			s.logger.Warn("dropping invalid record on load",
				zap.String("id", rec.RecordID()),
				zap.Error(err))
			continue
		}
		_ = valid.Add(rec)
	}

	return &valid, nil
}

// Save writes the full record set to disk atomically.
func (s *Store) Save(set *Set) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(set)
}

func (s *Store) saveLocked(set *Set) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating record store directory: %w", err)
	}

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling record store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing record store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing record store: %w", err)
	}
	return nil
}

// Update applies fn to the loaded set and saves the result under the store
// lock, so concurrent in-process mutations cannot interleave.
func (s *Store) Update(fn func(*Set) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.loadLocked()
	if err != nil {
		return err
	}
	if err := fn(set); err != nil {
		return err
	}
	return s.saveLocked(set)
}
