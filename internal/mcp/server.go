package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/macbot/internal/chat"
	"github.com/ziadkadry99/macbot/internal/ingest"
	"github.com/ziadkadry99/macbot/internal/retrieval"
	"github.com/ziadkadry99/macbot/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// DocumentLister is the part of ingest.Service the list tool needs.
type DocumentLister interface {
	ListDocuments(ctx context.Context, limit int) ([]ingest.DocumentSummary, error)
}

// Deps are the server's dependencies. Documents and Chat are optional;
// their tools are only registered when set.
type Deps struct {
	Embedder  retrieval.QueryEmbedder
	Store     vectordb.Store
	Documents DocumentLister
	Chat      *chat.Orchestrator
}

// Server wraps an MCP server that exposes the Macbeth index as tools.
type Server struct {
	deps Deps
	mcp  *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(deps Deps) *Server {
	s := &Server{deps: deps}

	s.mcp = server.NewMCPServer(
		"macbot",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchMacbethTool, s.handleSearchMacbeth)
	if s.deps.Documents != nil {
		s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
	}
	if s.deps.Chat != nil {
		s.mcp.AddTool(askMacbotTool, s.handleAskMacbot)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
