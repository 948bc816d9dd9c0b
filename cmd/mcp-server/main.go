// Package main provides the MCP server entry point for the smart building
// knowledge base.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mike-a-ellis/smart-building-kb/internal/app"
	"github.com/mike-a-ellis/smart-building-kb/internal/config"
	mcpserver "github.com/mike-a-ellis/smart-building-kb/internal/mcp"
)

func main() {
	// stdout carries the MCP stream in stdio mode.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Error("MCP server failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

// run returns instead of exiting so the knowledge base is always closed.
func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load(os.Getenv("KB_CONFIG"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer a.Close()

	server := mcpserver.NewServer(&mcpserver.Config{
		Assistant: a.Assistant,
		Retriever: a.Retriever,
		Pipeline:  a.Pipeline,
	})

	mux := mcpserver.NewMux(server, a.Collection, nil)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	if cfg.ServerMode {
		// HTTP mode: serve MCP over HTTP for remote clients
		logger.Info("Starting HTTP server", "addr", httpServer.Addr, "mcp", "/mcp", "health", "/health")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	}

	// Stdio mode, with the health endpoint in the background for local testing.
	go func() {
		logger.Info("Starting health server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Health server error", "error", err)
		}
	}()

	logger.Info("Starting Smart Building Knowledge Base MCP server (stdio mode)")
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
