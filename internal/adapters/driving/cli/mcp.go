package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driving/mcp"
)

var (
	mcpPort int
	mcpAddr string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the corpus to MCP clients",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Serve the document corpus over the Model Context Protocol.

Tools:
  search   Return the passages most similar to a query
  ask      Run one chat turn (pass conversation_id to continue a conversation)
  status   Report corpus size and model readiness

Resources:
  docchat://status
  docchat://documents
  docchat://documents/{id}

The server speaks JSON-RPC over stdio unless --port or --addr is given, in
which case it serves streamable HTTP.

Client configuration for stdio:
  {"mcpServers": {"docchat": {"command": "docchat", "args": ["mcp", "serve"]}}}`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port on all interfaces (0 = stdio)")
	mcpServeCmd.Flags().StringVar(&mcpAddr, "addr", "", "HTTP listen address, e.g. 127.0.0.1:8090")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	addr, err := mcpListenAddr()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retrieval, err := requireRetrieval(ctx)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Retrieval: retrieval,
		Chat:      chatService,
		Ingest:    ingestService,
	})
	if err != nil {
		return err
	}

	if addr == "" {
		return server.Run(ctx)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on %s\n", addr)
	return server.RunHTTP(ctx, addr)
}

// mcpListenAddr returns the HTTP address, or "" for stdio.
func mcpListenAddr() (string, error) {
	switch {
	case mcpAddr != "" && mcpPort != 0:
		return "", errors.New("use either --port or --addr, not both")
	case mcpAddr != "":
		return mcpAddr, nil
	case mcpPort < 0 || mcpPort > 65535:
		return "", fmt.Errorf("invalid port %d", mcpPort)
	case mcpPort > 0:
		return fmt.Sprintf(":%d", mcpPort), nil
	default:
		return "", nil
	}
}
