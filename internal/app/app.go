// Package app wires configuration into the storage, ingestion and query
// components shared by the CLI and the MCP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mike-a-ellis/smart-building-kb/internal/assistant"
	"github.com/mike-a-ellis/smart-building-kb/internal/chunker"
	"github.com/mike-a-ellis/smart-building-kb/internal/config"
	"github.com/mike-a-ellis/smart-building-kb/internal/embedding"
	"github.com/mike-a-ellis/smart-building-kb/internal/github"
	"github.com/mike-a-ellis/smart-building-kb/internal/indexer"
	"github.com/mike-a-ellis/smart-building-kb/internal/journal"
	"github.com/mike-a-ellis/smart-building-kb/internal/retrieval"
	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
	"github.com/mike-a-ellis/smart-building-kb/internal/watcher"
	"github.com/mike-a-ellis/smart-building-kb/internal/web"
)

// App holds the components built from one configuration.
type App struct {
	Config     *config.Config
	Collection storage.Collection
	Pipeline   *indexer.Pipeline
	Retriever  *retrieval.Retriever
	Assistant  *assistant.Assistant
	Logger     *slog.Logger
}

// Open selects a storage tier and builds the pipeline around it. Every tier that
// was skipped is logged at Warn; only exhausting all tiers is an error.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sel, err := storage.Select(ctx, storage.DefaultOpeners(storage.Options{
		Dir:         cfg.KBDir,
		Collection:  cfg.Collection,
		QdrantHost:  cfg.QdrantHost,
		QdrantPort:  cfg.QdrantPort,
		QdrantRetry: cfg.QdrantRetry.Duration,
		DisableDisk: cfg.DisableDisk,
	})...)
	if err != nil {
		return nil, err
	}
	for _, f := range sel.Failures {
		if errors.Is(f.Err, storage.ErrTierNotConfigured) {
			logger.Debug("Storage tier not configured", "tier", f.Tier.Letter(), "name", f.Tier)
			continue
		}
		logger.Warn("Storage tier unavailable", "tier", f.Tier.Letter(), "name", f.Tier, "error", f.Err)
	}
	caps := sel.Collection.Capabilities()
	logger.Info("Using storage tier", "tier", caps.Tier.Letter(), "name", caps.Tier, "ranked", caps.Ranked, "persistent", caps.Persistent)

	c, err := chunker.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		sel.Collection.Close()
		return nil, fmt.Errorf("chunker: %w", err)
	}

	pages := web.NewFetcher(web.Config{
		UserAgent: cfg.UserAgent,
		Delay:     cfg.FetchDelay.Duration,
		Timeout:   cfg.FetchTimeout.Duration,
	}, logger)

	retriever := retrieval.NewRetriever(sel.Collection, logger)
	return &App{
		Config:     cfg,
		Collection: sel.Collection,
		Pipeline:   indexer.NewPipeline(sel.Collection, c, embedding.NewEmbedder(0), pages, logger),
		Retriever:  retriever,
		Assistant:  assistant.New(retriever),
		Logger:     logger,
	}, nil
}

// GitHubSource returns a fetcher for a repository spec "owner/repo[/path]".
func (a *App) GitHubSource(spec, ref string) (*github.Fetcher, error) {
	repo, err := github.ParseRepository(spec)
	if err != nil {
		return nil, err
	}
	repo.Ref = ref

	client, err := github.NewClient(a.Config.GitHubToken)
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}
	return github.NewFetcher(client, repo), nil
}

// OpenJournal opens the training journal configured for the app.
func (a *App) OpenJournal() (*journal.Journal, error) {
	path := a.Config.Journal()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	return journal.Open(path)
}

// Watcher builds the auto-training watcher. rec may be nil.
func (a *App) Watcher(rec watcher.Recorder) *watcher.Watcher {
	return watcher.New(a.Pipeline, rec, watcher.Config{
		Dirs:     a.Config.WatchDirs,
		Debounce: a.Config.WatchDebounce.Duration,
	}, a.Logger)
}

func (a *App) Close() error {
	return a.Collection.Close()
}
