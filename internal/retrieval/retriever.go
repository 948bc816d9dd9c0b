// Package retrieval answers queries against the active collection, falling back
// to a keyword-overlap scan when vector search returns nothing.
package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/mike-a-ellis/smart-building-kb/internal/embedding"
	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
)

// Result is one retrieved chunk.
type Result struct {
	ID       string
	Content  string
	Metadata storage.Metadata
	Distance float64
}

// Retriever searches a collection. It holds no state of its own.
type Retriever struct {
	collection storage.Collection
	logger     *slog.Logger
}

func NewRetriever(collection storage.Collection, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{collection: collection, logger: logger}
}

// Search returns up to n chunks for query. Storage failures are logged and
// yield an empty result rather than an error.
//
// On a ranked tier the embedding query runs first and the keyword scan is the
// fallback. On an unranked tier the order is reversed, since its placeholder
// matches carry no relevance.
func (r *Retriever) Search(ctx context.Context, query string, n int) []Result {
	if n <= 0 {
		return nil
	}

	if r.collection.Capabilities().Ranked {
		if results := r.vectorSearch(ctx, query, n); len(results) > 0 {
			return results
		}
		return r.keywordSearch(ctx, query, n)
	}

	if results := r.keywordSearch(ctx, query, n); len(results) > 0 {
		return results
	}
	return r.vectorSearch(ctx, query, n)
}

func (r *Retriever) vectorSearch(ctx context.Context, query string, n int) []Result {
	matches, err := r.collection.Query(ctx, embedding.Embed(query), n)
	if err != nil {
		r.logger.Warn("Vector query failed", "error", err)
		return nil
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{ID: m.ID, Content: m.Document, Metadata: m.Metadata, Distance: m.Distance}
	}
	return results
}

func (r *Retriever) keywordSearch(ctx context.Context, query string, n int) []Result {
	records, err := r.collection.GetAll(ctx)
	if err != nil {
		r.logger.Warn("Keyword scan failed", "error", err)
		return nil
	}
	return KeywordScan(records, query, n)
}

// KeywordScan ranks records by the number of distinct query words they contain.
// Words are whitespace-separated and lower-cased. Records sharing no word are
// dropped; ties keep storage order. Distance is 1 - score/|query words|, kept
// within [0, 1].
func KeywordScan(records []storage.Record, query string, n int) []Result {
	queryWords := wordSet(query)
	if len(queryWords) == 0 || n <= 0 {
		return nil
	}

	type scored struct {
		record storage.Record
		score  int
	}
	var hits []scored
	for _, rec := range records {
		words := wordSet(rec.Document)
		score := 0
		for w := range queryWords {
			if _, ok := words[w]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{record: rec, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})
	if len(hits) > n {
		hits = hits[:n]
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		distance := 1 - float64(h.score)/float64(len(queryWords))
		results[i] = Result{
			ID:       h.record.ID,
			Content:  h.record.Document,
			Metadata: h.record.Metadata,
			Distance: min(max(distance, 0), 1),
		}
	}
	return results
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
