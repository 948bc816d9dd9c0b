package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"

	"github.com/mike-a-ellis/smart-building-kb/internal/extract"
)

// FetchedFile is a document downloaded from a repository.
type FetchedFile struct {
	Path    string // Relative to the fetcher's base path
	Content []byte
	SHA     string // Git blob SHA
	URL     string // raw.githubusercontent.com URL
}

// Repository identifies a directory of building documents on GitHub.
type Repository struct {
	Owner    string
	Repo     string
	BasePath string
	Ref      string // Branch, tag or commit; empty means the default branch
}

// ParseRepository accepts "owner/repo" or "owner/repo/base/path".
func ParseRepository(spec string) (Repository, error) {
	parts := strings.SplitN(strings.Trim(spec, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Repository{}, fmt.Errorf("invalid repository %q, expected owner/repo[/path]", spec)
	}
	r := Repository{Owner: parts[0], Repo: parts[1]}
	if len(parts) == 3 {
		r.BasePath = parts[2]
	}
	return r, nil
}

func (r Repository) String() string {
	return path.Join(r.Owner, r.Repo, r.BasePath)
}

// Fetcher lists and downloads documents in the formats the extractor handles.
type Fetcher struct {
	client *Client
	repo   Repository
}

func NewFetcher(client *Client, repo Repository) *Fetcher {
	return &Fetcher{client: client, repo: repo}
}

// Repository returns the repository being fetched.
func (f *Fetcher) Repository() Repository {
	return f.repo
}

func (f *Fetcher) contentOptions() *github.RepositoryContentGetOptions {
	if f.repo.Ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.repo.Ref}
}

// ListFiles recursively lists every supported document below the base path.
func (f *Fetcher) ListFiles(ctx context.Context) ([]string, error) {
	return f.listRecursive(ctx, f.repo.BasePath, "")
}

func (f *Fetcher) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var files []string

	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.repo.Owner, f.repo.Repo, fullPath, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if extract.Supported(*item.Name) {
				files = append(files, itemRelPath)
			}
		case "dir":
			sub, err := f.listRecursive(ctx, path.Join(fullPath, *item.Name), itemRelPath)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		}
	}

	return files, nil
}

// FetchFile downloads one file by its path relative to the base path.
func (f *Fetcher) FetchFile(ctx context.Context, relativePath string) (*FetchedFile, error) {
	fullPath := path.Join(f.repo.BasePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, f.repo.Owner, f.repo.Repo, fullPath, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil || fileContent.Content == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(*fileContent.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
	}

	ref := f.repo.Ref
	if ref == "" {
		ref = "main"
	}

	return &FetchedFile{
		Path:    relativePath,
		Content: content,
		SHA:     fileContent.GetSHA(),
		URL:     fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", f.repo.Owner, f.repo.Repo, ref, fullPath),
	}, nil
}

// LatestCommitSHA returns the most recent commit touching the base path.
func (f *Fetcher) LatestCommitSHA(ctx context.Context) (string, error) {
	opts := &github.CommitsListOptions{
		Path:        f.repo.BasePath,
		SHA:         f.repo.Ref,
		ListOptions: github.ListOptions{PerPage: 1},
	}
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.repo.Owner, f.repo.Repo, opts)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	if len(commits) == 0 || commits[0].SHA == nil {
		return "", fmt.Errorf("no commits found for path %s", f.repo.BasePath)
	}
	return *commits[0].SHA, nil
}
