// Package assistant composes retrieval and synthesis into the answer returned
// to users, and formats knowledge base reports.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/mike-a-ellis/smart-building-kb/internal/indexer"
	"github.com/mike-a-ellis/smart-building-kb/internal/retrieval"
	"github.com/mike-a-ellis/smart-building-kb/internal/synthesis"
)

const (
	searchResults = 20
	sourceResults = 10
	listedSources = 5
)

// Searcher retrieves chunks for a query.
type Searcher interface {
	Search(ctx context.Context, query string, n int) []retrieval.Result
}

type Assistant struct {
	searcher Searcher
}

func New(searcher Searcher) *Assistant {
	return &Assistant{searcher: searcher}
}

// Answer synthesizes a response from the 20 best chunks and lists the sources
// of the top 10.
func (a *Assistant) Answer(ctx context.Context, query string) string {
	results := a.searcher.Search(ctx, query, searchResults)
	if len(results) == 0 {
		return synthesis.NoInformation
	}

	var b strings.Builder
	b.WriteString(synthesis.Synthesize(query, results))

	sources := Sources(results[:min(sourceResults, len(results))])
	if len(sources) > 0 {
		b.WriteString("\n\n**Sources consulted:** ")
		b.WriteString(strings.Join(sources[:min(listedSources, len(sources))], ", "))
		if extra := len(sources) - listedSources; extra > 0 {
			fmt.Fprintf(&b, " and %d more...", extra)
		}
	}
	return b.String()
}

// Sources returns the distinct source labels of results in first-seen order.
func Sources(results []retrieval.Result) []string {
	seen := make(map[string]struct{})
	var sources []string
	for _, r := range results {
		label := SourceLabel(r)
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		sources = append(sources, label)
	}
	return sources
}

// SourceLabel names where a chunk came from: its domain, training section or file name.
func SourceLabel(r retrieval.Result) string {
	switch r.Metadata.String("source_type") {
	case indexer.SourceWeb:
		return valueOr(r.Metadata.String("domain"), "Web source")
	case indexer.SourceTraining:
		return "Training data: " + valueOr(r.Metadata.String("section"), "Unknown section")
	default:
		return valueOr(r.Metadata.String("filename"), "Document")
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
