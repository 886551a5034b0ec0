package vectorstore

import (
	"fmt"
	"path/filepath"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"go.uber.org/zap"
)

// New creates an Index based on the configuration.
//
// The "sqlite" provider (default) keeps everything in one database file and
// accelerates search with vec0 when the extension loads. The "chromem"
// provider uses an embedded chromem-go directory instead.
func New(cfg config.VectorConfig, logger *zap.Logger) (Index, error) {
	switch cfg.Provider {
	case "sqlite", "":
		return NewSQLiteIndex(SQLiteConfig{
			Path:       cfg.Path,
			VectorSize: cfg.VectorSize,
		}, logger)

	case "chromem":
		// cfg.Path names the sqlite file by default; chromem wants a
		// directory alongside it.
		path := cfg.Path
		if filepath.Ext(path) != "" {
			path = path[:len(path)-len(filepath.Ext(path))]
		}
		return NewChromemIndex(ChromemConfig{
			Path:       path,
			Collection: cfg.Collection,
			VectorSize: cfg.VectorSize,
		}, logger)

	default:
		return nil, fmt.Errorf("%w: unsupported provider %q (supported: sqlite, chromem)", ErrInvalidConfig, cfg.Provider)
	}
}
