package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchMacbethTool defines the search_macbeth MCP tool.
var searchMacbethTool = mcp.NewTool("search_macbeth",
	mcp.WithDescription("Search the indexed Macbeth material semantically. Returns matching passages with their source file and chunk."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 5)"),
	),
	mcp.WithString("file_name",
		mcp.Description("Only search chunks of this uploaded file"),
	),
)

// listDocumentsTool defines the list_documents MCP tool.
var listDocumentsTool = mcp.NewTool("list_documents",
	mcp.WithDescription("List the files currently in the index with their chunk counts."),
	mcp.WithNumber("limit",
		mcp.Description("Number of records to sample (default 10, max 1000)"),
	),
)

// askMacbotTool defines the ask_macbot MCP tool.
var askMacbotTool = mcp.NewTool("ask_macbot",
	mcp.WithDescription("Ask Macbot a question about Macbeth. The answer is grounded in the indexed material."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to ask"),
	),
	mcp.WithBoolean("use_uploaded_files",
		mcp.Description("Retrieve context from the index before answering (default true)"),
	),
)
