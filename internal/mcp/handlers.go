package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/macbot/internal/chat"
	"github.com/ziadkadry99/macbot/internal/ingest"
	"github.com/ziadkadry99/macbot/internal/llm"
	"github.com/ziadkadry99/macbot/internal/vectordb"
)

const defaultSearchLimit = 5

// handleSearchMacbeth performs semantic search over the vector store.
func (s *Server) handleSearchMacbeth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", defaultSearchLimit)
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var filter *vectordb.Filter
	if name := request.GetString("file_name", ""); name != "" {
		filter = &vectordb.Filter{FileName: name}
	}

	vec, err := s.deps.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("embedding query failed: %v", err)), nil
	}

	matches, err := s.deps.Store.Query(ctx, vec, limit, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(matches) == 0 {
		return mcp.NewToolResultText("No results found. The index may be empty. Run `macbot seed` or `macbot ingest` to populate it."), nil
	}

	return mcp.NewToolResultText(formatMatches(matches)), nil
}

// handleListDocuments summarises the files in the index.
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.deps.Documents.ListDocuments(ctx, request.GetInt("limit", ingest.DefaultListLimit))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing documents failed: %v", err)), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("The index is empty."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d document(s):\n", len(docs))
	for _, d := range docs {
		fmt.Fprintf(&sb, "- %s (%d chunks sampled", d.FileName, d.Chunks)
		if d.UploadedAt != nil {
			fmt.Fprintf(&sb, ", uploaded %s", d.UploadedAt.Format("2006-01-02 15:04"))
		}
		sb.WriteString(")\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// answerSink collects a streamed answer.
type answerSink struct {
	sb strings.Builder
}

func (a *answerSink) Open() error { return nil }

func (a *answerSink) Write(delta string) error {
	a.sb.WriteString(delta)
	return nil
}

// handleAskMacbot runs one chat turn and returns the whole answer.
func (s *Server) handleAskMacbot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	useFiles := request.GetBool("use_uploaded_files", true)

	sink := &answerSink{}
	err = s.deps.Chat.Run(ctx, chat.Request{
		Messages:   []llm.Message{{Role: llm.RoleUser, Content: question}},
		UseContext: &useFiles,
	}, sink)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to generate response: %v", err)), nil
	}
	return mcp.NewToolResultText(sink.sb.String()), nil
}

// formatMatches converts matches into a text format suited to AI agents.
func formatMatches(matches []vectordb.Match) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n", len(matches)))

	for i, m := range matches {
		sb.WriteString(fmt.Sprintf("\n--- Result %d ---\n", i+1))

		location := fmt.Sprintf("%s, chunk %d", m.FileName, m.ChunkIndex+1)
		if m.PageNumber != nil {
			location += fmt.Sprintf(", page %d", *m.PageNumber)
		}
		sb.WriteString(fmt.Sprintf("Source: %s\n", location))
		sb.WriteString(fmt.Sprintf("Similarity: %.1f%%\n", m.Score*100))

		sb.WriteString("\n")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}

	return sb.String()
}
