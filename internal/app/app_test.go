package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/smart-building-kb/internal/config"
	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
	"github.com/mike-a-ellis/smart-building-kb/internal/synthesis"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.KBDir = filepath.Join(t.TempDir(), "kb")
	return &cfg
}

func TestOpenSelectsSQLiteWithoutQdrant(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, testConfig(t), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, storage.TierSQLite, a.Collection.Capabilities().Tier)
	assert.FileExists(t, filepath.Join(a.Config.KBDir, storage.SQLiteFileName))
}

func TestOpenFallsBackToMemory(t *testing.T) {
	cfg := testConfig(t)
	cfg.DisableDisk = true

	a, err := Open(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, storage.TierMemory, a.Collection.Capabilities().Tier)
}

func TestEndToEndPersistence(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	logger := slog.New(slog.DiscardHandler)

	doc := filepath.Join(t.TempDir(), "hvac_manual.txt")
	require.NoError(t, os.WriteFile(doc, []byte("The HVAC filter should be replaced every 3 months."), 0644))

	a, err := Open(ctx, cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, synthesis.NoInformation, a.Assistant.Answer(ctx, "HVAC filter maintenance"))
	out := a.Pipeline.Ingest(ctx, doc, "hvac_manual")
	require.True(t, out.Success, out.Message)
	require.NoError(t, a.Close())

	// a fresh process sees the same chunks
	a, err = Open(ctx, cfg, logger)
	require.NoError(t, err)
	defer a.Close()

	stats, err := a.Pipeline.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalChunks)
	assert.Contains(t, a.Assistant.Answer(ctx, "HVAC filter maintenance"), "**Sources consulted:** hvac_manual.txt")
}

func TestJournalPath(t *testing.T) {
	cfg := testConfig(t)
	a := &App{Config: cfg}

	j, err := a.OpenJournal()
	require.NoError(t, err)
	defer j.Close()
	assert.FileExists(t, filepath.Join(cfg.KBDir, "training_log.db"))
}

func TestGitHubSourceRejectsBadSpec(t *testing.T) {
	a := &App{Config: testConfig(t)}
	_, err := a.GitHubSource("not-a-repo", "")
	assert.Error(t, err)

	f, err := a.GitHubSource("acme/docs/manuals", "v2")
	require.NoError(t, err)
	assert.Equal(t, "v2", f.Repository().Ref)
}
