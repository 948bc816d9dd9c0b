package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/smart-building-kb/internal/assistant"
	"github.com/mike-a-ellis/smart-building-kb/internal/indexer"
	"github.com/mike-a-ellis/smart-building-kb/internal/retrieval"
)

const (
	defaultMaxResults = 5
	maxMaxResults     = 20
)

var errEmptyQuery = errors.New("query must not be empty")

// makeAnswerHandler creates the answer_question tool handler.
func makeAnswerHandler(a *assistant.Assistant) func(
	context.Context, *mcp.CallToolRequest, AnswerQuestionInput,
) (*mcp.CallToolResult, AnswerQuestionOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AnswerQuestionInput) (
		*mcp.CallToolResult, AnswerQuestionOutput, error,
	) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, AnswerQuestionOutput{}, errEmptyQuery
		}
		return nil, AnswerQuestionOutput{Answer: a.Answer(ctx, input.Query)}, nil
	}
}

// makeSearchHandler creates the search_knowledge tool handler.
func makeSearchHandler(r *retrieval.Retriever, p *indexer.Pipeline) func(
	context.Context, *mcp.CallToolRequest, SearchKnowledgeInput,
) (*mcp.CallToolResult, SearchKnowledgeOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchKnowledgeInput) (
		*mcp.CallToolResult, SearchKnowledgeOutput, error,
	) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, SearchKnowledgeOutput{}, errEmptyQuery
		}

		// Apply defaults
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = defaultMaxResults
		}
		maxResults = min(maxResults, maxMaxResults)

		found := r.Search(ctx, input.Query, maxResults)
		ranked := p.Collection().Capabilities().Ranked

		if len(found) == 0 {
			return nil, SearchKnowledgeOutput{
				Results: []SearchResult{},
				Ranked:  ranked,
				Message: "No matching chunks found. Try broader search terms or add more documents.",
			}, nil
		}

		results := make([]SearchResult, 0, len(found))
		for _, f := range found {
			meta := map[string]any(f.Metadata)
			if meta == nil {
				meta = map[string]any{} // Ensure non-nil for JSON marshaling
			}
			results = append(results, SearchResult{
				ID:       f.ID,
				Content:  f.Content,
				Source:   assistant.SourceLabel(f),
				Distance: f.Distance,
				Metadata: meta,
			})
		}

		return nil, SearchKnowledgeOutput{Results: results, Ranked: ranked}, nil
	}
}

// makeIngestHandler creates the ingest_source tool handler. Ingestion failures
// are reported in the output rather than as tool errors.
func makeIngestHandler(p *indexer.Pipeline) func(
	context.Context, *mcp.CallToolRequest, IngestSourceInput,
) (*mcp.CallToolResult, IngestSourceOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestSourceInput) (
		*mcp.CallToolResult, IngestSourceOutput, error,
	) {
		if strings.TrimSpace(input.Source) == "" {
			return nil, IngestSourceOutput{}, errors.New("source must not be empty")
		}
		out := p.Ingest(ctx, input.Source, input.Type)
		return nil, IngestSourceOutput{
			Success: out.Success,
			Message: out.Message,
			Chunks:  out.Chunks,
		}, nil
	}
}

// makeTrainHandler creates the train_from_web tool handler.
func makeTrainHandler(p *indexer.Pipeline) func(
	context.Context, *mcp.CallToolRequest, TrainFromWebInput,
) (*mcp.CallToolResult, TrainFromWebOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input TrainFromWebInput) (
		*mcp.CallToolResult, TrainFromWebOutput, error,
	) {
		urls := input.URLs
		if len(urls) == 0 {
			urls = indexer.DefaultTrainingURLs
		}
		category := input.Category
		if category == "" {
			category = indexer.DefaultCategory
		}

		result := p.TrainFromURLs(ctx, urls, category)
		return nil, TrainFromWebOutput{
			SuccessfulURLs: nonNil(result.SuccessfulURLs),
			FailedURLs:     nonNil(result.FailedURLs),
			Errors:         nonNil(result.Errors),
			TotalChunks:    result.TotalChunks,
			Summary:        assistant.FormatTrainResult(result),
		}, nil
	}
}

// makeStatsHandler creates the get_stats tool handler.
func makeStatsHandler(p *indexer.Pipeline) func(
	context.Context, *mcp.CallToolRequest, StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (
		*mcp.CallToolResult, StatsOutput, error,
	) {
		stats, err := p.Stats(ctx)
		if err != nil {
			return nil, StatsOutput{}, fmt.Errorf("storage_error: %w", err)
		}
		return nil, StatsOutput{
			TotalChunks:    stats.TotalChunks,
			WebChunks:      stats.WebChunks,
			LocalChunks:    stats.LocalChunks,
			TrainingChunks: stats.TrainingChunks,
			UniqueSources:  stats.UniqueSources,
			Tier:           string(stats.Tier),
			TierLetter:     stats.Tier.Letter(),
		}, nil
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
