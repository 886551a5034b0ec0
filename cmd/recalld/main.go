// Package main implements the recalld CLI: session knowledge capture,
// semantic search and the long-running HTTP server.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/extraction"
	"github.com/fyrsmithlabs/recalld/internal/knowledge"
	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/scoring"
	"github.com/fyrsmithlabs/recalld/internal/search"
	"github.com/fyrsmithlabs/recalld/internal/session"
	"github.com/fyrsmithlabs/recalld/internal/vectorstore"
)

var (
	configPath string
	outputJSON bool
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "recalld",
	Short: "Capture and recall knowledge from working sessions",
	Long: `recalld extracts decisions, patterns, tasks and insights from session
transcripts, stores them as typed records and makes them searchable by
meaning.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/recalld/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output results as JSON")
}

// app holds the wired services shared by all commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	provider embeddings.Provider
	index    vectorstore.Index
	records  *knowledge.Store
	meta     *session.MetaStore
	log      *session.ChangeLog
	captures *session.Service
	searcher *search.Service
}

// newApp loads configuration and wires the full pipeline.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	provider, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider:      cfg.Embedding.Provider,
		Model:         cfg.Embedding.Model,
		CacheDir:      cfg.Embedding.CacheDir,
		MaxInputChars: cfg.Embedding.MaxInputChars,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing embeddings: %w", err)
	}

	index, err := vectorstore.New(cfg.Vector, logger)
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("initializing vector index: %w", err)
	}

	records := knowledge.NewStore(cfg.Records.Path, logger)
	meta := session.NewMetaStore(filepath.Join(cfg.DataDir, "sessions.json"), cfg.Session.MaxSessions, logger)
	changelog := session.NewChangeLog(
		cfg.Session.ChangeLogPath,
		cfg.Session.LockTimeout.Duration(),
		cfg.Session.LockStale.Duration(),
		logger,
	)

	scorer := scoring.NewScorer(provider, cfg.Scoring, logger)
	captures := session.NewService(
		extraction.NewExtractor(logger),
		scorer,
		provider,
		records,
		index,
		meta,
		changelog,
		logger,
	)
	searcher := search.NewService(provider, index, records, meta, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		index:    index,
		records:  records,
		meta:     meta,
		log:      changelog,
		captures: captures,
		searcher: searcher,
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	if err := a.index.Close(); err != nil {
		a.logger.Warn("closing vector index", zap.Error(err))
	}
	if err := a.provider.Close(); err != nil {
		a.logger.Warn("closing embedding provider", zap.Error(err))
	}
	_ = a.logger.Sync()
}
