package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/yegors/live-facts/internal/mcp"
	"github.com/yegors/live-facts/pkg/logger"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs the fact-checking pipeline as an MCP (Model Context Protocol) server
on stdio, exposing the check_statement and split_statements tools.

Logs go to stderr so they never mix with the protocol on stdout.`,
		Example: `  # Start MCP server (typically called by an MCP client)
  livefacts mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "livefacts": {
  #       "command": "livefacts",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
		RunE: runMCP,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker, err := newChecker(ctx, cfg, log)
	if err != nil {
		return err
	}

	server := mcp.NewServer(checker, log)
	log.Info("MCP server starting on stdio", logger.String("version", versionInfo.Version))

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
