package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/smart-building-kb/internal/chunker"
	"github.com/mike-a-ellis/smart-building-kb/internal/embedding"
	"github.com/mike-a-ellis/smart-building-kb/internal/indexer"
	"github.com/mike-a-ellis/smart-building-kb/internal/retrieval"
	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
	"github.com/mike-a-ellis/smart-building-kb/internal/synthesis"
)

type stubSearcher []retrieval.Result

func (s stubSearcher) Search(ctx context.Context, query string, n int) []retrieval.Result {
	return s[:min(n, len(s))]
}

func TestAnswerEmptyKnowledgeBase(t *testing.T) {
	coll := storage.NewMemoryCollection()
	a := New(retrieval.NewRetriever(coll, slog.New(slog.DiscardHandler)))

	assert.Equal(t, synthesis.NoInformation, a.Answer(context.Background(), "HVAC filter maintenance"))
}

func TestAnswerFromIngestedDocument(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)
	coll := storage.NewMemoryCollection()

	c, err := chunker.NewChunker(chunker.DefaultSize, chunker.DefaultOverlap)
	require.NoError(t, err)
	p := indexer.NewPipeline(coll, c, embedding.NewEmbedder(0), nil, logger)

	path := filepath.Join(t.TempDir(), "hvac_manual.txt")
	require.NoError(t, os.WriteFile(path, []byte("The HVAC filter should be replaced every 3 months."), 0644))
	_, err = p.IngestFile(ctx, path, nil)
	require.NoError(t, err)

	a := New(retrieval.NewRetriever(coll, logger))
	out := a.Answer(ctx, "HVAC filter maintenance")

	assert.Equal(t,
		"**HVAC System Information:** The HVAC filter should be replaced every 3 months\n"+
			synthesis.Advisory(synthesis.TopicHVAC)+
			"\n\n**Sources consulted:** hvac_manual.txt",
		out)
}

func TestAnswerListsAtMostFiveSources(t *testing.T) {
	var results stubSearcher
	for i := range 12 {
		results = append(results, retrieval.Result{
			Content:  "Parking notes",
			Metadata: storage.Metadata{"filename": fmt.Sprintf("doc%d.txt", i%8)},
		})
	}

	out := New(results).Answer(context.Background(), "parking")
	_, sources, found := strings.Cut(out, "\n\n**Sources consulted:** ")
	require.True(t, found)
	assert.Equal(t, "doc0.txt, doc1.txt, doc2.txt, doc3.txt, doc4.txt and 3 more...", sources)
}

func TestSources(t *testing.T) {
	results := []retrieval.Result{
		{Metadata: storage.Metadata{"source_type": indexer.SourceWeb, "domain": "www.ashrae.org"}},
		{Metadata: storage.Metadata{"source_type": indexer.SourceTraining, "section": "rooms"}},
		{Metadata: storage.Metadata{"source_type": indexer.SourceWeb, "domain": "www.ashrae.org"}},
		{Metadata: storage.Metadata{"filename": "plan.pdf"}},
		{Metadata: storage.Metadata{"source_type": indexer.SourceWeb}},
		{Metadata: storage.Metadata{}},
	}
	assert.Equal(t, []string{
		"www.ashrae.org",
		"Training data: rooms",
		"plan.pdf",
		"Web source",
		"Document",
	}, Sources(results))
}

func TestFormatStats(t *testing.T) {
	out := FormatStats(&indexer.Stats{
		TotalChunks:    10,
		WebChunks:      4,
		LocalChunks:    5,
		TrainingChunks: 1,
		UniqueSources:  3,
		Tier:           storage.TierSQLite,
	})
	assert.Equal(t, "**Knowledge Base Statistics:**\n\n"+
		"Total chunks: 10\n"+
		"Web content chunks: 4\n"+
		"Local file chunks: 5\n"+
		"Training data chunks: 1\n"+
		"Unique sources: 3\n"+
		"Storage tier: B (sqlite)\n", out)
}

func TestFormatTrainResult(t *testing.T) {
	out := FormatTrainResult(&indexer.TrainResult{
		SuccessfulURLs: []string{"https://a.example/"},
		FailedURLs:     []string{"https://b.example/"},
		Errors:         []string{"Error with https://b.example/: HTTP 500"},
		TotalChunks:    7,
	})
	assert.Equal(t, "**Web Training Results:**\n"+
		"Successful URLs: 1\n"+
		"Failed URLs: 1\n"+
		"Total chunks in KB: 7\n"+
		"\n**Successfully added:**\n• https://a.example/\n"+
		"\n**Failed to add:**\n• https://b.example/\n"+
		"\n**Errors:**\n• Error with https://b.example/: HTTP 500\n", out)

	out = FormatTrainResult(&indexer.TrainResult{})
	assert.NotContains(t, out, "**Errors:**")
}

func TestFormatSuggestions(t *testing.T) {
	out := FormatSuggestions(indexer.Suggestions)
	assert.True(t, strings.HasPrefix(out, "**Recommended URLs for Web Training:**\n\n**Building Management:**\n"))
	assert.Contains(t, out, "**HVAC Systems:**\n• https://www.ashrae.org/\n")
	assert.Contains(t, out, "• `kb train-web`")
}
