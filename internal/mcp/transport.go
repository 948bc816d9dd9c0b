package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
)

// HTTPHandlerOptions configures the HTTP transport behavior.
type HTTPHandlerOptions struct {
	// Stateless disables session management. Default: false (stateful).
	Stateless bool
	// JSONResponse answers with application/json instead of an event stream.
	JSONResponse bool
}

// NewHTTPHandler creates an HTTP handler for the MCP server using Streamable HTTP transport.
func NewHTTPHandler(server *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = &HTTPHandlerOptions{}
	}

	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server.MCPServer()
	}, &mcp.StreamableHTTPOptions{
		Stateless:    opts.Stateless,
		JSONResponse: opts.JSONResponse,
	})
}

// NewMux mounts the landing page at /, the MCP endpoint at /mcp and the
// health check at /health.
func NewMux(server *Server, collection storage.Collection, opts *HTTPHandlerOptions) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", NewLandingHandler())
	mux.HandleFunc("/health", NewHealthHandler(collection))
	mux.Handle("/mcp", NewHTTPHandler(server, opts))
	return mux
}
