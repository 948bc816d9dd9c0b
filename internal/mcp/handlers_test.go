package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/smart-building-kb/internal/assistant"
	"github.com/mike-a-ellis/smart-building-kb/internal/chunker"
	"github.com/mike-a-ellis/smart-building-kb/internal/embedding"
	"github.com/mike-a-ellis/smart-building-kb/internal/indexer"
	"github.com/mike-a-ellis/smart-building-kb/internal/retrieval"
	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
	"github.com/mike-a-ellis/smart-building-kb/internal/synthesis"
	"github.com/mike-a-ellis/smart-building-kb/internal/web"
)

type stubPages map[string]string

func (s stubPages) Extract(ctx context.Context, rawURL string) (*web.Page, error) {
	text, ok := s[rawURL]
	if !ok {
		return nil, &web.FetchError{URL: rawURL, StatusCode: 503}
	}
	return &web.Page{URL: rawURL, Text: text}, nil
}

type fixture struct {
	cfg        *Config
	collection storage.Collection
}

func newFixture(t *testing.T, coll storage.Collection, pages indexer.PageFetcher) fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	c, err := chunker.NewChunker(chunker.DefaultSize, chunker.DefaultOverlap)
	require.NoError(t, err)

	retriever := retrieval.NewRetriever(coll, logger)
	return fixture{
		cfg: &Config{
			Assistant: assistant.New(retriever),
			Retriever: retriever,
			Pipeline:  indexer.NewPipeline(coll, c, embedding.NewEmbedder(0), pages, logger),
		},
		collection: coll,
	}
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestIngestThenAnswer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, storage.NewMemoryCollection(), nil)

	ingest := makeIngestHandler(f.cfg.Pipeline)
	_, out, err := ingest(ctx, nil, IngestSourceInput{
		Source: writeDoc(t, "hvac_manual.txt", "The HVAC filter should be replaced every 3 months."),
		Type:   "hvac_manual",
	})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Chunks)
	assert.Equal(t, "Successfully added document: hvac_manual.txt", out.Message)

	answer := makeAnswerHandler(f.cfg.Assistant)
	_, ans, err := answer(ctx, nil, AnswerQuestionInput{Query: "HVAC filter maintenance"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ans.Answer, "**HVAC System Information:** The HVAC filter should be replaced every 3 months\n"))
	assert.True(t, strings.HasSuffix(ans.Answer, "**Sources consulted:** hvac_manual.txt"))

	_, _, err = answer(ctx, nil, AnswerQuestionInput{Query: "  "})
	assert.ErrorIs(t, err, errEmptyQuery)
}

func TestIngestFailureIsNotToolError(t *testing.T) {
	f := newFixture(t, storage.NewMemoryCollection(), nil)
	ingest := makeIngestHandler(f.cfg.Pipeline)

	_, out, err := ingest(context.Background(), nil, IngestSourceInput{Source: "/does/not/exist.pdf"})
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "File not found: /does/not/exist.pdf", out.Message)
}

func TestAnswerEmptyKnowledgeBase(t *testing.T) {
	f := newFixture(t, storage.NewMemoryCollection(), nil)
	_, ans, err := makeAnswerHandler(f.cfg.Assistant)(context.Background(), nil, AnswerQuestionInput{Query: "lighting"})
	require.NoError(t, err)
	assert.Equal(t, synthesis.NoInformation, ans.Answer)
}

func TestSearchKnowledge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, storage.NewFallbackCollection(), nil)

	_, err := f.cfg.Pipeline.IngestFile(ctx, writeDoc(t, "rooms.txt", "Room A101 seats 40 students."), nil)
	require.NoError(t, err)

	search := makeSearchHandler(f.cfg.Retriever, f.cfg.Pipeline)
	_, out, err := search(ctx, nil, SearchKnowledgeInput{Query: "room a101"})
	require.NoError(t, err)
	assert.False(t, out.Ranked)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "rooms_0", out.Results[0].ID)
	assert.Equal(t, "rooms.txt", out.Results[0].Source)
	assert.Equal(t, "rooms.txt", out.Results[0].Metadata["filename"])

	_, out, err = search(ctx, nil, SearchKnowledgeInput{Query: "chiller"})
	require.NoError(t, err)
	// the fallback tier still returns its placeholder matches
	assert.Len(t, out.Results, 1)

	empty := newFixture(t, storage.NewMemoryCollection(), nil)
	_, out, err = makeSearchHandler(empty.cfg.Retriever, empty.cfg.Pipeline)(ctx, nil, SearchKnowledgeInput{Query: "chiller"})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
	assert.NotEmpty(t, out.Message)
	assert.True(t, out.Ranked)
}

func TestTrainFromWebAndStats(t *testing.T) {
	ctx := context.Background()
	good := "https://www.energy.gov/eere/buildings/smart-buildings"
	f := newFixture(t, storage.NewMemoryCollection(), stubPages{
		good: strings.Repeat("Smart buildings use sensors to save energy. ", 5),
	})

	train := makeTrainHandler(f.cfg.Pipeline)
	_, out, err := train(ctx, nil, TrainFromWebInput{URLs: []string{good, "https://offline.example/"}})
	require.NoError(t, err)
	assert.Equal(t, []string{good}, out.SuccessfulURLs)
	assert.Equal(t, []string{"https://offline.example/"}, out.FailedURLs)
	assert.Equal(t, 1, out.TotalChunks)
	assert.Contains(t, out.Summary, "Successful URLs: 1")

	records, err := f.collection.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, indexer.DefaultCategory, records[0].Metadata.String("category"))

	_, stats, err := makeStatsHandler(f.cfg.Pipeline)(ctx, nil, StatsInput{})
	require.NoError(t, err)
	assert.Equal(t, StatsOutput{
		TotalChunks:   1,
		WebChunks:     1,
		UniqueSources: 1,
		Tier:          "memory",
		TierLetter:    "C",
	}, stats)
}

func TestHealthHandler(t *testing.T) {
	coll := storage.NewMemoryCollection()
	rec := httptest.NewRecorder()
	NewHealthHandler(coll)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "memory", resp.Tier)
	assert.Equal(t, "C", resp.TierLetter)
	assert.True(t, resp.Ranked)
	assert.False(t, resp.Persistent)
}

func TestLandingHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewLandingHandler()(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Smart Building Knowledge Base")

	rec = httptest.NewRecorder()
	NewLandingHandler()(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerListsTools(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, storage.NewMemoryCollection(), nil)
	server := NewServer(f.cfg)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := server.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"answer_question", "search_knowledge", "ingest_source", "train_from_web", "get_stats",
	}, names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "get_stats", Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.False(t, res.IsError)
}
