package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tijdlijn/internal/adapters/driving/mcp"
	"github.com/custodia-labs/tijdlijn/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server exposes the tools get_timeline, list_documents and update_document,
and the resources tijdlijn://timelines, tijdlijn://timelines/{caseId} and
tijdlijn://documents/{documentId}. update_document needs a configured LLM.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default, for desktop assistants)
  tijdlijn mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  tijdlijn mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "tijdlijn": {
        "command": "/path/to/tijdlijn",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	if timelineService == nil || documentService == nil {
		return errors.New("services not configured")
	}

	ports := &mcp.Ports{
		Timeline: timelineService,
		Document: documentService,
	}
	if pipeline, err := requirePipeline(); err == nil {
		ports.Pipeline = pipeline
	} else {
		logger.Warn("mcp: update_document disabled: %v", err)
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	logger.SetTimestamps(true)
	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
