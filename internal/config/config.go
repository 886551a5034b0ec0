package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fyrsmithlabs/recalld/internal/logging"
)

// Config is the root configuration for recalld.
type Config struct {
	// DataDir is the root directory for all persistent state.
	DataDir string `koanf:"data_dir"`

	Logging   logging.Config  `koanf:"logging"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Vector    VectorConfig    `koanf:"vector"`
	Records   RecordsConfig   `koanf:"records"`
	Session   SessionConfig   `koanf:"session"`
	Scoring   ScoringConfig   `koanf:"scoring"`
	HTTP      HTTPConfig      `koanf:"http"`
	Tracker   TrackerConfig   `koanf:"tracker"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	// Provider selects the embedding backend: "fastembed" or "static".
	// "static" is a deterministic hash-based provider used in tests and
	// offline environments.
	Provider string `koanf:"provider"`

	// Model is the embedding model name.
	// Default: BAAI/bge-small-en-v1.5 (384 dimensions).
	Model string `koanf:"model"`

	// CacheDir is the model cache directory.
	CacheDir string `koanf:"cache_dir"`

	// MaxInputChars caps embedded input length. Longer inputs are
	// truncated, never rejected.
	MaxInputChars int `koanf:"max_input_chars"`
}

// VectorConfig configures the vector index.
type VectorConfig struct {
	// Provider selects the backend: "sqlite" (default) or "chromem".
	Provider string `koanf:"provider"`

	// Path is the on-disk location (sqlite file or chromem directory).
	Path string `koanf:"path"`

	// VectorSize is the embedding dimension. Must match the embedder.
	VectorSize int `koanf:"vector_size"`

	// Collection is the chromem collection name.
	Collection string `koanf:"collection"`
}

// RecordsConfig configures the knowledge record store.
type RecordsConfig struct {
	// Path is the JSON record store file.
	Path string `koanf:"path"`
}

// SessionConfig configures session capture and pruning.
type SessionConfig struct {
	// MaxSessions is the maximum retained session count; older session
	// metadata is pruned beyond it. Pruning never deletes knowledge
	// records or their embeddings.
	MaxSessions int `koanf:"max_sessions"`

	// ChangeLogPath is the append-only pending-changes log shared
	// between processes.
	ChangeLogPath string `koanf:"changelog_path"`

	// LockTimeout bounds the wait for the changelog file lock.
	LockTimeout Duration `koanf:"lock_timeout"`

	// LockStale is the age after which a held lock is treated as
	// abandoned and reclaimed.
	LockStale Duration `koanf:"lock_stale"`
}

// ScoringConfig configures quality scoring thresholds.
//
// Thresholds are empirically tuned, not derived; they are configuration so
// deployments and tests can adjust them.
type ScoringConfig struct {
	// Thresholds maps knowledge type ("decision", "pattern", "task",
	// "insight") to the minimum golden-bank similarity for acceptance.
	Thresholds map[string]float64 `koanf:"thresholds"`

	// MinLengths maps knowledge type to the minimum candidate length
	// accepted before any embedding call is spent.
	MinLengths map[string]int `koanf:"min_lengths"`
}

// HTTPConfig configures the HTTP facade.
type HTTPConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// TrackerConfig configures the file-change tracker.
type TrackerConfig struct {
	Enabled bool `koanf:"enabled"`

	// Paths are directories to watch for changes.
	Paths []string `koanf:"paths"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.DataDir = filepath.Join(home, ".local", "share", "recalld")
	}

	c.Logging.ApplyDefaults()

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "fastembed"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "BAAI/bge-small-en-v1.5"
	}
	if c.Embedding.CacheDir == "" {
		c.Embedding.CacheDir = filepath.Join(c.DataDir, "models")
	}
	if c.Embedding.MaxInputChars == 0 {
		c.Embedding.MaxInputChars = 8000
	}

	if c.Vector.Provider == "" {
		c.Vector.Provider = "sqlite"
	}
	if c.Vector.Path == "" {
		switch c.Vector.Provider {
		case "chromem":
			c.Vector.Path = filepath.Join(c.DataDir, "vectors")
		default:
			c.Vector.Path = filepath.Join(c.DataDir, "vectors.db")
		}
	}
	if c.Vector.VectorSize == 0 {
		c.Vector.VectorSize = 384
	}
	if c.Vector.Collection == "" {
		c.Vector.Collection = "recalld_knowledge"
	}

	if c.Records.Path == "" {
		c.Records.Path = filepath.Join(c.DataDir, "records.json")
	}

	if c.Session.MaxSessions == 0 {
		c.Session.MaxSessions = 50
	}
	if c.Session.ChangeLogPath == "" {
		c.Session.ChangeLogPath = filepath.Join(c.DataDir, "pending-changes.jsonl")
	}
	if c.Session.LockTimeout == 0 {
		c.Session.LockTimeout = Duration(5 * time.Second)
	}
	if c.Session.LockStale == 0 {
		c.Session.LockStale = Duration(30 * time.Second)
	}

	if c.Scoring.Thresholds == nil {
		c.Scoring.Thresholds = DefaultThresholds()
	}
	if c.Scoring.MinLengths == nil {
		c.Scoring.MinLengths = DefaultMinLengths()
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = "127.0.0.1:7133"
	}
}

// DefaultThresholds returns the reference similarity thresholds.
// Insight and pattern language is lexically more varied than explicit
// decision/task language, so their thresholds sit lower.
func DefaultThresholds() map[string]float64 {
	return map[string]float64{
		"decision": 0.38,
		"pattern":  0.32,
		"task":     0.35,
		"insight":  0.30,
	}
}

// DefaultMinLengths returns the per-type minimum candidate lengths.
func DefaultMinLengths() map[string]int {
	return map[string]int{
		"decision": 20,
		"pattern":  20,
		"task":     10,
		"insight":  25,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	switch c.Embedding.Provider {
	case "fastembed", "static":
	default:
		return fmt.Errorf("embedding: unsupported provider %q (supported: fastembed, static)", c.Embedding.Provider)
	}
	if c.Embedding.MaxInputChars < 0 {
		return fmt.Errorf("embedding: max_input_chars must be non-negative")
	}

	switch c.Vector.Provider {
	case "sqlite", "chromem":
	default:
		return fmt.Errorf("vector: unsupported provider %q (supported: sqlite, chromem)", c.Vector.Provider)
	}
	if c.Vector.VectorSize <= 0 {
		return fmt.Errorf("vector: vector_size must be positive")
	}

	if c.Session.MaxSessions < 1 {
		return fmt.Errorf("session: max_sessions must be at least 1")
	}

	for typ, th := range c.Scoring.Thresholds {
		if th < 0 || th > 1 {
			return fmt.Errorf("scoring: threshold for %q out of range [0,1]: %v", typ, th)
		}
	}
	for typ, n := range c.Scoring.MinLengths {
		if n < 0 {
			return fmt.Errorf("scoring: min_length for %q must be non-negative", typ)
		}
	}

	return nil
}
