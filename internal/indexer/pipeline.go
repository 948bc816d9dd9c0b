// Package indexer turns documents, web pages and training data into stored chunks.
package indexer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mike-a-ellis/smart-building-kb/internal/chunker"
	"github.com/mike-a-ellis/smart-building-kb/internal/embedding"
	"github.com/mike-a-ellis/smart-building-kb/internal/extract"
	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
	"github.com/mike-a-ellis/smart-building-kb/internal/web"
)

// Source types recorded in chunk metadata.
const (
	SourceWeb      = "web_content"
	SourceTraining = "training_data"
)

// PageFetcher extracts the text of a web page.
type PageFetcher interface {
	Extract(ctx context.Context, rawURL string) (*web.Page, error)
}

// Pipeline orchestrates extraction, chunking, embedding and storage.
type Pipeline struct {
	collection storage.Collection
	chunker    *chunker.Chunker
	embedder   *embedding.Embedder
	pages      PageFetcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline creates a new ingestion pipeline. pages may be nil when no web
// ingestion is needed.
func NewPipeline(
	collection storage.Collection,
	chunker *chunker.Chunker,
	embedder *embedding.Embedder,
	pages PageFetcher,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		collection: collection,
		chunker:    chunker,
		embedder:   embedder,
		pages:      pages,
		logger:     logger,
		now:        time.Now,
	}
}

// Collection returns the collection chunks are written to.
func (p *Pipeline) Collection() storage.Collection {
	return p.collection
}

func (p *Pipeline) timestamp() string {
	return p.now().Format(time.RFC3339)
}

// IngestFile extracts a local file and stores its chunks with ids <stem>_<i>.
// Caller metadata overrides the file metadata. Returns the number of chunks stored.
func (p *Pipeline) IngestFile(ctx context.Context, path string, meta storage.Metadata) (int, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}

	text, err := extract.File(path)
	if err != nil {
		return 0, err
	}
	return p.storeDocument(ctx, path, text, meta)
}

// IngestBytes stores an in-memory document named name, such as a file fetched
// from GitHub. name is recorded as the file path.
func (p *Pipeline) IngestBytes(ctx context.Context, name string, data []byte, meta storage.Metadata) (int, error) {
	text, err := extract.Bytes(name, data)
	if err != nil {
		return 0, err
	}
	return p.storeDocument(ctx, name, text, meta)
}

func (p *Pipeline) storeDocument(ctx context.Context, path, text string, meta storage.Metadata) (int, error) {
	name := filepath.Base(path)
	ext := filepath.Ext(name)

	base := storage.Metadata{
		"filename":   name,
		"file_path":  path,
		"file_type":  ext,
		"added_date": p.timestamp(),
	}
	for k, v := range meta {
		base[k] = v
	}

	n, err := p.store(ctx, text, strings.TrimSuffix(name, ext), base)
	if err != nil {
		return 0, err
	}
	p.logger.Info("Indexed document", "path", path, "chunks", n)
	return n, nil
}

// IngestURL fetches a page and stores its chunks with ids web_<hash>_<i>, where
// hash is the first 8 hex digits of the MD5 of the URL. Pages with fewer than
// web.MinContentLength characters of text are rejected.
func (p *Pipeline) IngestURL(ctx context.Context, rawURL string, meta storage.Metadata) (int, error) {
	if p.pages == nil {
		return 0, errors.New("web ingestion is not configured")
	}

	page, err := p.pages.Extract(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	if len(strings.TrimSpace(page.Text)) < web.MinContentLength {
		return 0, fmt.Errorf("%s: %w", rawURL, web.ErrInsufficientContent)
	}

	var domain string
	if u, err := url.Parse(rawURL); err == nil {
		domain = u.Host
	}

	base := storage.Metadata{
		"source_url":  rawURL,
		"domain":      domain,
		"source_type": SourceWeb,
		"added_date":  p.timestamp(),
	}
	for k, v := range meta {
		base[k] = v
	}

	sum := md5.Sum([]byte(rawURL))
	prefix := "web_" + hex.EncodeToString(sum[:])[:8]

	n, err := p.store(ctx, page.Text, prefix, base)
	if err != nil {
		return 0, err
	}
	p.logger.Info("Indexed page", "url", rawURL, "chunks", n, "insecure_tls", page.InsecureTLS)
	return n, nil
}

// store chunks text and writes one record per chunk. Chunk metadata is the
// document metadata plus chunk_index and chunk_id.
func (p *Pipeline) store(ctx context.Context, text, idPrefix string, meta storage.Metadata) (int, error) {
	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, ErrNoChunks
	}

	embeddings, err := p.embedder.GenerateEmbeddings(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embeddings: %w", err)
	}

	records := make([]storage.Record, len(chunks))
	for i, chunk := range chunks {
		id := fmt.Sprintf("%s_%d", idPrefix, i)
		m := meta.Clone()
		m["chunk_index"] = i
		m["chunk_id"] = id
		records[i] = storage.Record{
			ID:        id,
			Document:  chunk,
			Metadata:  m,
			Embedding: embeddings[i],
		}
	}

	if err := p.collection.Add(ctx, records); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	return len(records), nil
}

// Outcome is the result of a single tagged ingestion.
type Outcome struct {
	Success bool
	Message string
	Chunks  int
	Err     error
}

// IsURL reports whether source should be fetched rather than read from disk.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Ingest adds a file path or URL with a type tag. For URLs the tag is the
// category (default web_content); for files it is the document type and
// category (default general).
func (p *Pipeline) Ingest(ctx context.Context, source, typeTag string) Outcome {
	if IsURL(source) {
		if typeTag == "" {
			typeTag = SourceWeb
		}
		n, err := p.IngestURL(ctx, source, storage.Metadata{
			"category":    typeTag,
			"source_type": SourceWeb,
		})
		if err != nil {
			p.logger.Warn("Failed to ingest URL", "url", source, "error", err)
			return Outcome{Message: fmt.Sprintf("Failed to add web content from: %s (%v)", source, err), Err: err}
		}
		return Outcome{Success: true, Chunks: n, Message: "Successfully added web content from: " + source}
	}

	if typeTag == "" {
		typeTag = "general"
	}
	name := filepath.Base(source)
	n, err := p.IngestFile(ctx, source, storage.Metadata{
		"document_type": typeTag,
		"category":      typeTag,
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return Outcome{Message: "File not found: " + source, Err: err}
	case err != nil:
		p.logger.Warn("Failed to ingest document", "path", source, "error", err)
		return Outcome{Message: fmt.Sprintf("Failed to add document: %s (%v)", name, err), Err: err}
	}
	return Outcome{Success: true, Chunks: n, Message: "Successfully added document: " + name}
}
