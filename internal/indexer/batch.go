package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mike-a-ellis/smart-building-kb/internal/extract"
	"github.com/mike-a-ellis/smart-building-kb/internal/github"
	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
)

// IndexResult contains statistics about a batch ingestion.
type IndexResult struct {
	TotalDocs      int
	TotalChunks    int
	SuccessfulDocs int
	FailedDocs     []FailedSource
	CommitSHA      string
	Duration       time.Duration
}

// FailedSource represents a document or URL that failed to ingest.
type FailedSource struct {
	Source string
	Reason string
}

var documentTypes = []struct {
	keywords []string
	docType  string
}{
	{[]string{"iic", "eiu"}, "university_overview"},
	{[]string{"hvac"}, "hvac_manual"},
	{[]string{"lighting"}, "lighting_specifications"},
	{[]string{"security"}, "security_manual"},
	{[]string{"energy"}, "energy_management"},
	{[]string{"maintenance"}, "maintenance_guide"},
	{[]string{"safety"}, "safety_procedures"},
	{[]string{"automation"}, "automation_guide"},
	{[]string{"manual"}, "technical_manual"},
	{[]string{"specification"}, "system_specification"},
}

// DocumentType infers a document type from a file name. The first matching
// keyword wins.
func DocumentType(path string) string {
	name := strings.ToLower(filepath.Base(path))
	for _, dt := range documentTypes {
		for _, kw := range dt.keywords {
			if strings.Contains(name, kw) {
				return dt.docType
			}
		}
	}
	return "general_documentation"
}

// IngestDirectory ingests every supported file under dir whose slash-separated
// relative path matches pattern (doublestar syntax, default "**"). A failing
// file is recorded and skipped.
func (p *Pipeline) IngestDirectory(ctx context.Context, dir, pattern string) (*IndexResult, error) {
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	start := time.Now()
	result := &IndexResult{}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !extract.Supported(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		ok, err := doublestar.Match(pattern, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		if ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	result.TotalDocs = len(paths)
	p.logger.Info("Found documents", "dir", dir, "count", len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := p.IngestFile(ctx, path, storage.Metadata{
			"document_type": DocumentType(path),
			"training_date": p.timestamp(),
			"batch_trained": true,
			"source_file":   filepath.Base(path),
		})
		if err != nil {
			p.logger.Warn("Failed to process document", "path", path, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedSource{Source: path, Reason: err.Error()})
			continue
		}
		result.SuccessfulDocs++
		result.TotalChunks += n
	}

	result.Duration = time.Since(start)
	p.logger.Info("Directory ingestion complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}

// RepositorySource lists and fetches documents from a repository.
type RepositorySource interface {
	Repository() github.Repository
	LatestCommitSHA(ctx context.Context) (string, error)
	ListFiles(ctx context.Context) ([]string, error)
	FetchFile(ctx context.Context, path string) (*github.FetchedFile, error)
}

// IngestGitHub fetches every supported document from a repository and ingests it.
func (p *Pipeline) IngestGitHub(ctx context.Context, src RepositorySource) (*IndexResult, error) {
	start := time.Now()
	result := &IndexResult{}
	repo := src.Repository()

	commitSHA, err := src.LatestCommitSHA(ctx)
	if err != nil {
		return nil, fmt.Errorf("get commit SHA: %w", err)
	}
	result.CommitSHA = commitSHA
	p.logger.Info("Starting indexing", "repository", repo.String(), "commit", commitSHA)

	paths, err := src.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	result.TotalDocs = len(paths)
	p.logger.Info("Found documents", "count", len(paths))

	for _, path := range paths {
		n, err := p.ingestRepositoryFile(ctx, src, path, commitSHA)
		if err != nil {
			p.logger.Warn("Failed to process document", "path", path, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedSource{Source: path, Reason: err.Error()})
			continue
		}
		result.SuccessfulDocs++
		result.TotalChunks += n
	}

	result.Duration = time.Since(start)
	p.logger.Info("Indexing complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}

func (p *Pipeline) ingestRepositoryFile(ctx context.Context, src RepositorySource, path, commitSHA string) (int, error) {
	fetched, err := src.FetchFile(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	p.logger.Debug("Fetched document", "path", path, "size", len(fetched.Content))

	return p.IngestBytes(ctx, fetched.Path, fetched.Content, storage.Metadata{
		"document_type": DocumentType(path),
		"repository":    src.Repository().String(),
		"commit_sha":    commitSHA,
		"file_url":      fetched.URL,
	})
}
