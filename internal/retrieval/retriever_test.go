package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/smart-building-kb/internal/chunker"
	"github.com/mike-a-ellis/smart-building-kb/internal/embedding"
	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func ingest(t *testing.T, c storage.Collection, name, text string) {
	t.Helper()
	chunks, err := chunker.Chunk(text, chunker.DefaultSize, chunker.DefaultOverlap)
	require.NoError(t, err)

	records := make([]storage.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = storage.Record{
			ID:        fmt.Sprintf("%s_%d", name, i),
			Document:  chunk,
			Metadata:  storage.Metadata{"filename": name + ".txt", "chunk_index": i},
			Embedding: embedding.Embed(chunk),
		}
	}
	require.NoError(t, c.Add(context.Background(), records))
}

func allTiers(t *testing.T) map[string]storage.Collection {
	t.Helper()
	sqlite, err := storage.NewSQLiteCollection(context.Background(), t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]storage.Collection{
		"sqlite":   sqlite,
		"memory":   storage.NewMemoryCollection(),
		"fallback": storage.NewFallbackCollection(),
	}
}

func TestExactSubstringIsRetrievableOnEveryTier(t *testing.T) {
	doc := strings.Repeat("Chilled water loops serve the east wing. ", 30) +
		"The HVAC filter should be replaced every 3 months. " +
		strings.Repeat("Lighting circuits are zoned per floor. ", 30)

	for _, substring := range []string{"HVAC filter should be replaced", "ter should be rep"} {
		for name, c := range allTiers(t) {
			t.Run(name+"/"+substring, func(t *testing.T) {
				ingest(t, c, "manual", doc)

				results := NewRetriever(c, quiet).Search(context.Background(), substring, 5)
				require.NotEmpty(t, results)

				found := false
				for _, r := range results {
					if strings.Contains(r.Content, substring) {
						found = true
					}
				}
				assert.True(t, found, "no result contains %q", substring)
			})
		}
	}
}

func TestEmptyCollectionReturnsNothing(t *testing.T) {
	for name, c := range allTiers(t) {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, NewRetriever(c, quiet).Search(context.Background(), "HVAC filter maintenance", 20))
		})
	}
}

func TestFallbackTierPrefersKeywordMatches(t *testing.T) {
	c := storage.NewFallbackCollection()
	ingest(t, c, "lighting", "LED fixtures with daylight sensors.")
	ingest(t, c, "hvac", "The HVAC filter should be replaced every 3 months.")

	results := NewRetriever(c, quiet).Search(context.Background(), "hvac filter", 1)
	require.Len(t, results, 1)
	assert.Equal(t, "hvac_0", results[0].ID)
	assert.Equal(t, 0.0, results[0].Distance)
}

func TestFallbackTierWithoutKeywordHitsReturnsPlaceholders(t *testing.T) {
	c := storage.NewFallbackCollection()
	ingest(t, c, "a", "first document")
	ingest(t, c, "b", "second document")

	results := NewRetriever(c, quiet).Search(context.Background(), "zzz", 5)
	require.Len(t, results, 2)
	assert.Equal(t, "a_0", results[0].ID)
	assert.Equal(t, storage.PlaceholderDistance, results[1].Distance)
}

type brokenCollection struct {
	storage.Collection
	ranked bool
}

func (b brokenCollection) Query(context.Context, []float32, int) ([]storage.Match, error) {
	return nil, errors.New("query failed")
}

func (b brokenCollection) GetAll(context.Context) ([]storage.Record, error) {
	return nil, errors.New("scan failed")
}

func (b brokenCollection) Capabilities() storage.Capabilities {
	return storage.Capabilities{Ranked: b.ranked}
}

func TestStorageErrorsYieldEmptyResults(t *testing.T) {
	for _, ranked := range []bool{true, false} {
		results := NewRetriever(brokenCollection{ranked: ranked}, quiet).Search(context.Background(), "hvac", 5)
		assert.Empty(t, results)
	}
}

func TestKeywordScan(t *testing.T) {
	records := []storage.Record{
		{ID: "one", Document: "boiler room access"},
		{ID: "two", Document: "Boiler and chiller maintenance"},
		{ID: "three", Document: "roof membrane"},
		{ID: "four", Document: "chiller boiler"},
	}

	results := KeywordScan(records, "boiler chiller", 10)
	require.Len(t, results, 3)
	assert.Equal(t, "two", results[0].ID)
	assert.Equal(t, "four", results[1].ID, "ties keep storage order")
	assert.Equal(t, "one", results[2].ID)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-9)
	assert.InDelta(t, 0.5, results[2].Distance, 1e-9)

	assert.Len(t, KeywordScan(records, "boiler chiller", 1), 1)
}

func TestKeywordScanEmptyQuery(t *testing.T) {
	records := []storage.Record{{ID: "x", Document: "anything"}}
	assert.Empty(t, KeywordScan(records, "   ", 5))
	assert.Empty(t, KeywordScan(records, "", 5))
}

func TestKeywordScanDistanceStaysInRange(t *testing.T) {
	records := []storage.Record{{ID: "x", Document: "hvac hvac filter filter"}}
	results := KeywordScan(records, "hvac filter hvac", 5)
	require.Len(t, results, 1)
	assert.GreaterOrEqual(t, results[0].Distance, 0.0)
	assert.LessOrEqual(t, results[0].Distance, 1.0)
}

func TestRankedTierOrdersByEmbedding(t *testing.T) {
	c := storage.NewMemoryCollection()
	ingest(t, c, "lighting", "led lamp dimmer brightness")
	ingest(t, c, "hvac", "hvac filter replacement schedule")

	results := NewRetriever(c, quiet).Search(context.Background(), "hvac filter replacement schedule", 2)
	require.Len(t, results, 2)
	assert.Equal(t, "hvac_0", results[0].ID)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-9)
	assert.Greater(t, results[1].Distance, results[0].Distance)
}
