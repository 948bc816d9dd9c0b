// Package main provides the kb CLI for building and querying the smart building
// knowledge base.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/smart-building-kb/internal/app"
	"github.com/mike-a-ellis/smart-building-kb/internal/config"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "kb",
	Short: "Smart building knowledge base",
	Long: `kb ingests building documents, web pages and training data into a local
knowledge base and answers building management questions from it.

Storage tiers are tried in order: Qdrant (when QDRANT_HOST is set), SQLite in
KB_DIR, in-memory, then an unranked fallback.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "kb.toml", "Path to an optional TOML config file")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp loads configuration and opens the knowledge base.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return app.Open(ctx, cfg, slog.Default())
}
