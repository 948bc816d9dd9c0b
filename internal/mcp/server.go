package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/smart-building-kb/internal/assistant"
	"github.com/mike-a-ellis/smart-building-kb/internal/indexer"
	"github.com/mike-a-ellis/smart-building-kb/internal/retrieval"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Assistant *assistant.Assistant
	Retriever *retrieval.Retriever
	Pipeline  *indexer.Pipeline
	Version   string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	impl := &mcp.Implementation{
		Name:    "smart-building-kb",
		Version: version,
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "answer_question",
		Description: "Answer a building management question (HVAC, lighting, energy, safety, security, rooms, maintenance) from the knowledge base. Returns a synthesized answer followed by the sources consulted.",
	}, makeAnswerHandler(cfg.Assistant))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the knowledge base and return the raw matching chunks with their metadata and distances.",
	}, makeSearchHandler(cfg.Retriever, cfg.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_source",
		Description: "Add a local document (PDF, DOCX, TXT, MD, XLSX, CSV, JSON) or a web page to the knowledge base.",
	}, makeIngestHandler(cfg.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "train_from_web",
		Description: "Fetch a list of building management web pages, respecting robots.txt, and add them to the knowledge base.",
	}, makeTrainHandler(cfg.Pipeline))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_stats",
		Description: "Get knowledge base statistics: chunk counts by origin, unique sources and the active storage tier.",
	}, makeStatsHandler(cfg.Pipeline))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
