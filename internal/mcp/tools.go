package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/yegors/live-facts/internal/factcheck"
	"github.com/yegors/live-facts/pkg/logger"
)

// Server name and version reported to MCP clients
const (
	ServerName    = "live-facts"
	ServerVersion = "0.1.0"
)

// NewServer creates an MCP server with every tool registered
func NewServer(checker factcheck.Checker, log *logger.Logger) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer(ServerName, ServerVersion)
	RegisterTools(server, checker, log)
	return server
}

// RegisterTools registers the fact-checking tools with the server
func RegisterTools(server *mcpserver.MCPServer, checker factcheck.Checker, log *logger.Logger) *Handlers {
	handlers := &Handlers{
		checker: checker,
		logger:  log.Named("mcp"),
	}

	server.AddTool(mcp.Tool{
		Name:        "check_statement",
		Description: "Fact-check a single statement. Returns whether it is checkable and, if so, an accuracy verdict (true, dubious, obviously-fake) with reasoning.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"statement": map[string]any{
					"type":        "string",
					"description": "The statement to check",
				},
				"transcript": map[string]any{
					"type":        "string",
					"description": "Optional preceding transcript, used to resolve pronouns",
				},
			},
			Required: []string{"statement"},
		},
	}, handlers.CheckStatement)

	server.AddTool(mcp.Tool{
		Name:        "split_statements",
		Description: "Split transcript text into complete sentences and an unfinished remainder.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Transcript text to split",
				},
			},
			Required: []string{"text"},
		},
	}, handlers.SplitStatements)

	return handlers
}
