package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// SQLiteConfig holds configuration for the SQLite index.
type SQLiteConfig struct {
	// Path is the database file. Parent directories are created.
	Path string
	// VectorSize is the embedding dimension.
	VectorSize int
}

// SQLiteIndex stores entries in a single SQLite file. The entries table with
// its vector blobs is always authoritative; when the vec0 extension loads, a
// virtual table keyed by entries.rowid accelerates KNN search. When it does
// not, search runs as a brute-force cosine scan over the same blobs, so
// results stay correct either way.
type SQLiteIndex struct {
	db        *sql.DB
	dimension int
	native    bool
	logger    *zap.Logger
}

// NewSQLiteIndex opens (creating if needed) the index at cfg.Path.
func NewSQLiteIndex(cfg SQLiteConfig, logger *zap.Logger) (*SQLiteIndex, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	if cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", cfg.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("verifying index database: %w", err)
	}

	idx := &SQLiteIndex{
		db:        db,
		dimension: cfg.VectorSize,
		logger:    logger,
	}
	if err := idx.setupSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *SQLiteIndex) setupSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id         TEXT PRIMARY KEY,
		type       TEXT NOT NULL,
		snippet    TEXT NOT NULL,
		session_id TEXT NOT NULL DEFAULT '',
		vector     BLOB NOT NULL,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);
	CREATE INDEX IF NOT EXISTS idx_entries_type ON entries(type);
	CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id);
	CREATE TABLE IF NOT EXISTS index_state (
		key   TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating entries schema: %w", err)
	}

	s.native = s.probeVec()
	if !s.native {
		// Expected on builds without the extension; linear scan serves.
		s.logger.Info("vec0 extension unavailable, using linear-scan search")
		return nil
	}

	create := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_entries USING vec0(embedding float[%d] distance_metric=cosine)`,
		s.dimension)
	if _, err := s.db.Exec(create); err != nil {
		s.logger.Warn("creating vec0 table failed, using linear-scan search", zap.Error(err))
		s.native = false
		return nil
	}

	if err := s.syncNative(); err != nil {
		s.logger.Warn("rebuilding vec0 index failed, using linear-scan search", zap.Error(err))
		s.native = false
	}
	return nil
}

// probeVec reports whether the vec0 module is actually loadable on this
// connection, not just compiled in.
func (s *SQLiteIndex) probeVec() bool {
	if _, err := s.db.Exec(`CREATE VIRTUAL TABLE vec_probe USING vec0(embedding float[4])`); err != nil {
		return false
	}
	_, _ = s.db.Exec(`DROP TABLE vec_probe`)
	return true
}

// index_state keys tracking writes against the authoritative entries table.
// generation increments inside every write transaction; vec_generation is
// the generation the vec0 index last absorbed, stamped by native writes and
// by syncNative rebuilds.
const (
	stateGeneration    = "generation"
	stateVecGeneration = "vec_generation"
)

func (s *SQLiteIndex) stateValue(key string) (int64, error) {
	var v int64
	err := s.db.QueryRow(`SELECT value FROM index_state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// markWritten bumps the write generation inside a write transaction. Native
// writes also advance vec_generation, since they update vec_entries in the
// same transaction.
func markWritten(ctx context.Context, tx *sql.Tx, native bool) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO index_state(key, value) VALUES (?, 1)
		ON CONFLICT(key) DO UPDATE SET value = value + 1`,
		stateGeneration); err != nil {
		return err
	}
	if !native {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO index_state(key, value)
		SELECT ?, value FROM index_state WHERE key = ?
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		stateVecGeneration, stateGeneration)
	return err
}

// syncNative rebuilds the vec0 table from the authoritative entries table
// after writes the native index never saw. Drift is detected by write
// generation, not row count: a vec0-less build that deletes and reinserts an
// equal number of rows leaves the counts matching while SQLite reuses the
// freed rowids, which would leave vec_entries serving stale vectors under
// the new rows' rowids. The count comparison stays as a backstop for stores
// that predate the generation counter.
func (s *SQLiteIndex) syncNative() error {
	gen, err := s.stateValue(stateGeneration)
	if err != nil {
		return err
	}
	vecGen, err := s.stateValue(stateVecGeneration)
	if err != nil {
		return err
	}

	var entryCount, vecCount int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&entryCount); err != nil {
		return err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM vec_entries`).Scan(&vecCount); err != nil {
		return err
	}
	if gen == vecGen && entryCount == vecCount {
		return nil
	}

	s.logger.Info("rebuilding vec0 index from entries",
		zap.Int64("generation", gen),
		zap.Int64("vec_generation", vecGen),
		zap.Int("entries", entryCount),
		zap.Int("indexed", vecCount))

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM vec_entries`); err != nil {
		return err
	}
	rows, err := tx.Query(`SELECT rowid, vector FROM entries`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type row struct {
		rowid int64
		blob  []byte
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.rowid, &r.blob); err != nil {
			return err
		}
		pending = append(pending, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, r := range pending {
		if _, err := tx.Exec(`INSERT INTO vec_entries(rowid, embedding) VALUES (?, ?)`, r.rowid, r.blob); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO index_state(key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		stateVecGeneration, gen); err != nil {
		return err
	}
	return tx.Commit()
}

// Native reports whether the vec0 index is active.
func (s *SQLiteIndex) Native() bool {
	return s.native
}

// Insert adds or replaces one entry.
func (s *SQLiteIndex) Insert(ctx context.Context, entry Entry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.insertTx(ctx, tx, entry)
	})
}

// InsertBatch applies all entries in one transaction; a failure applies none.
func (s *SQLiteIndex) InsertBatch(ctx context.Context, entries []Entry) (err error) {
	ctx, span := tracer.Start(ctx, "vectorstore.sqlite.InsertBatch")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int("entries", len(entries)))

	if len(entries) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, entry := range entries {
			if err := s.insertTx(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteIndex) insertTx(ctx context.Context, tx *sql.Tx, entry Entry) error {
	if err := entry.Validate(s.dimension); err != nil {
		return err
	}

	blob := encodeVector(entry.Vector)

	// Upsert keeps the rowid stable on replace, so the vec0 mapping by
	// rowid stays one-to-one.
	_, err := tx.ExecContext(ctx, `
		INSERT INTO entries (id, type, snippet, session_id, vector)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			snippet = excluded.snippet,
			session_id = excluded.session_id,
			vector = excluded.vector`,
		entry.ID, entry.Type, entry.Snippet, entry.SessionID, blob)
	if err != nil {
		return fmt.Errorf("upserting entry %s: %w", entry.ID, err)
	}

	if !s.native {
		return nil
	}

	var rowid int64
	if err := tx.QueryRowContext(ctx, `SELECT rowid FROM entries WHERE id = ?`, entry.ID).Scan(&rowid); err != nil {
		return fmt.Errorf("resolving rowid for %s: %w", entry.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vec_entries WHERE rowid = ?`, rowid); err != nil {
		return fmt.Errorf("clearing vec row for %s: %w", entry.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO vec_entries(rowid, embedding) VALUES (?, ?)`, rowid, blob); err != nil {
		return fmt.Errorf("indexing vector for %s: %w", entry.ID, err)
	}
	return nil
}

// Search returns up to k entries ranked by cosine similarity, highest first.
func (s *SQLiteIndex) Search(ctx context.Context, query []float32, k int, typeFilter string) (matches []Match, err error) {
	ctx, span := tracer.Start(ctx, "vectorstore.sqlite.Search")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.Int("k", k),
		attribute.String("type_filter", typeFilter),
		attribute.Bool("native", s.native),
	)

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(query) != s.dimension {
		return nil, ErrDimensionMismatch
	}

	if s.native {
		matches, err := s.nativeSearch(ctx, query, k, typeFilter)
		if err == nil {
			return matches, nil
		}
		s.logger.Warn("vec0 search failed, falling back to linear scan", zap.Error(err))
	}
	return s.linearSearch(ctx, query, k, typeFilter)
}

// nativeSearch runs a vec0 KNN query. Type filtering happens after the KNN
// pass with over-fetch; when over-fetch cannot satisfy k, the caller's
// linear scan is authoritative.
func (s *SQLiteIndex) nativeSearch(ctx context.Context, query []float32, k int, typeFilter string) ([]Match, error) {
	total, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return []Match{}, nil
	}

	fetch := k
	if typeFilter != "" {
		fetch = k * 8
	}
	if fetch > total {
		fetch = total
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.type, e.snippet, e.session_id, v.distance
		FROM vec_entries v
		JOIN entries e ON e.rowid = v.rowid
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance`,
		encodeVector(query), fetch)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var distance float64
		if err := rows.Scan(&m.ID, &m.Type, &m.Snippet, &m.SessionID, &distance); err != nil {
			return nil, err
		}
		if typeFilter != "" && m.Type != typeFilter {
			continue
		}
		// vec0 reports cosine distance; callers get similarity.
		m.Score = 1 - distance
		matches = append(matches, m)
		if len(matches) == k {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Over-fetch missed filtered rows that a full scan would find.
	if typeFilter != "" && len(matches) < k && fetch < total {
		return s.linearSearch(ctx, query, k, typeFilter)
	}
	return matches, nil
}

// linearSearch is the brute-force cosine scan over the authoritative blobs.
func (s *SQLiteIndex) linearSearch(ctx context.Context, query []float32, k int, typeFilter string) ([]Match, error) {
	q := `SELECT id, type, snippet, session_id, vector FROM entries`
	args := []any{}
	if typeFilter != "" {
		q += ` WHERE type = ?`
		args = append(args, typeFilter)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var blob []byte
		if err := rows.Scan(&m.ID, &m.Type, &m.Snippet, &m.SessionID, &blob); err != nil {
			return nil, err
		}
		vec, err := decodeVector(blob)
		if err != nil {
			s.logger.Warn("skipping entry with malformed vector", zap.String("id", m.ID), zap.Error(err))
			continue
		}
		m.Score = cosineSimilarity(query, vec)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	if matches == nil {
		matches = []Match{}
	}
	return matches, nil
}

// Delete removes an entry by id. Deleting a missing id is a no-op.
func (s *SQLiteIndex) Delete(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if s.native {
			var rowid int64
			err := tx.QueryRowContext(ctx, `SELECT rowid FROM entries WHERE id = ?`, id).Scan(&rowid)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				return nil
			case err != nil:
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM vec_entries WHERE rowid = ?`, rowid); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
		return err
	})
}

// DeleteBySession removes every entry captured from one session.
func (s *SQLiteIndex) DeleteBySession(ctx context.Context, sessionID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if s.native {
			rows, err := tx.QueryContext(ctx, `SELECT rowid FROM entries WHERE session_id = ?`, sessionID)
			if err != nil {
				return err
			}
			var rowids []int64
			for rows.Next() {
				var rowid int64
				if err := rows.Scan(&rowid); err != nil {
					rows.Close()
					return err
				}
				rowids = append(rowids, rowid)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}
			for _, rowid := range rowids {
				if _, err := tx.ExecContext(ctx, `DELETE FROM vec_entries WHERE rowid = ?`, rowid); err != nil {
					return err
				}
			}
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE session_id = ?`, sessionID)
		return err
	})
}

// Exists reports whether an entry with the given id is indexed.
func (s *SQLiteIndex) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM entries WHERE id = ?`, id).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Count returns the number of indexed entries.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count)
	return count, err
}

// CountByType returns entry counts keyed by knowledge type.
func (s *SQLiteIndex) CountByType(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM entries GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, err
		}
		counts[typ] = count
	}
	return counts, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

func (s *SQLiteIndex) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := markWritten(ctx, tx, s.native); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
