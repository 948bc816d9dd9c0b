// Package watcher trains the knowledge base automatically when documents are
// created or modified in the watched directories.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mike-a-ellis/smart-building-kb/internal/indexer"
	"github.com/mike-a-ellis/smart-building-kb/internal/journal"
	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
)

const (
	DefaultDebounce = 5 * time.Second
	DefaultSettle   = time.Second
)

// DefaultDirs are watched when no directories are configured.
var DefaultDirs = []string{"smart_building_data", "documents", "."}

// Extensions are the file types the watcher trains on.
var Extensions = []string{".pdf", ".docx", ".doc", ".txt", ".json", ".md", ".csv", ".xlsx"}

// ShouldTrain reports whether a changed file should be ingested. Hidden,
// temporary and backup files are skipped.
func ShouldTrain(path string) bool {
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(name))

	supported := false
	for _, e := range Extensions {
		if ext == e {
			supported = true
			break
		}
	}
	if !supported {
		return false
	}

	if strings.HasPrefix(name, "~") || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.Contains(name, ".bak") && !strings.Contains(name, ".tmp")
}

// Trainer ingests a local file.
type Trainer interface {
	IngestFile(ctx context.Context, path string, meta storage.Metadata) (int, error)
}

// Recorder stores training attempts.
type Recorder interface {
	Append(e journal.Entry) error
}

// Config controls which directories are watched and how long events settle.
type Config struct {
	Dirs []string
	// Debounce is how long a modified file must be quiet before retraining.
	Debounce time.Duration
	// Settle is the wait after a file is created.
	Settle time.Duration
}

// Watcher watches directories recursively and trains on changed documents.
type Watcher struct {
	cfg      Config
	trainer  Trainer
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	debouncer *debouncer
}

// New creates a watcher. recorder may be nil.
func New(trainer Trainer, recorder Recorder, cfg Config, logger *slog.Logger) *Watcher {
	if len(cfg.Dirs) == 0 {
		cfg.Dirs = DefaultDirs
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		cfg:       cfg,
		trainer:   trainer,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
		debouncer: newDebouncer(),
	}
}

// Run watches until ctx is cancelled. Directories that do not exist are skipped;
// it is an error if none can be watched.
func (w *Watcher) Run(ctx context.Context) (err error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	watched := 0
	for _, dir := range w.cfg.Dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			w.logger.Info("Skipping missing watch directory", "dir", dir)
			continue
		}
		if err := recursiveAdd(fsw, dir); err != nil {
			return err
		}
		abs, _ := filepath.Abs(dir)
		w.logger.Info("Watching", "dir", abs)
		watched++
	}
	if watched == 0 {
		return errors.New("no watch directories exist")
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			w.logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
		}
	}()

	err = w.loop(ctx, fsw)
	if !w.debouncer.stopAndWait(5 * time.Second) {
		w.logger.Warn("Timed out waiting for in-flight training")
	}
	return err
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			w.handle(ctx, fsw, event)

		case wErr, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("fsnotify error", "error", wErr)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	w.logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := recursiveAdd(fsw, event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", "dir", event.Name, "error", err)
			}
			return
		}
	}

	if !ShouldTrain(event.Name) {
		return
	}

	var delay time.Duration
	switch {
	case event.Has(fsnotify.Create):
		w.logger.Info("New file detected", "file", filepath.Base(event.Name))
		delay = w.cfg.Settle
	case event.Has(fsnotify.Write):
		delay = w.cfg.Debounce
	default:
		return
	}

	path := event.Name
	w.debouncer.add(path, delay, func() {
		if _, err := os.Stat(path); err != nil {
			return
		}
		w.TrainFile(ctx, path)
	})
}

// TrainFile ingests path with auto-training metadata and records the attempt.
func (w *Watcher) TrainFile(ctx context.Context, path string) bool {
	name := filepath.Base(path)
	docType := indexer.DocumentType(path)
	now := w.now()

	w.logger.Info("Training on file", "file", name, "document_type", docType)
	n, err := w.trainer.IngestFile(ctx, path, storage.Metadata{
		"document_type": docType,
		"auto_trained":  true,
		"training_date": now.Format(time.RFC3339),
		"source_file":   name,
	})

	entry := journal.Entry{
		Timestamp:      now,
		FilePath:       path,
		FileName:       name,
		DocumentType:   docType,
		Success:        err == nil,
		TrainingMethod: journal.MethodAutoTraining,
		Chunks:         n,
	}
	if err != nil {
		entry.Error = err.Error()
		w.logger.Warn("Failed to train on file", "file", name, "error", err)
	} else {
		w.logger.Info("Trained on file", "file", name, "chunks", n)
	}

	if w.recorder != nil {
		if jErr := w.recorder.Append(entry); jErr != nil {
			w.logger.Warn("Could not save training log", "error", jErr)
		}
	}
	return err == nil
}

// recursiveAdd watches root and every non-hidden directory below it.
func recursiveAdd(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
