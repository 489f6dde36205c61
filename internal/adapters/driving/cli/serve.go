package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

var (
	serveAddr  string
	serveWatch string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API serving the upload, chat and status endpoints.

Endpoints (also available under /api):
  POST /upload             Upload a document (multipart field "file" or raw body)
  POST /chat               Send a message: {"message": "...", "conversation_id": "..."}
  GET  /status             Corpus and model status
  GET  /suggested-prompts  Starter questions
  GET  /health             Liveness check
  POST /reset              Reset a session or the whole corpus

With --watch, the directory is ingested at startup and kept in sync while
the server runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from settings, "+domain.DefaultServerAddr+")")
	serveCmd.Flags().StringVar(&serveWatch, "watch", "", "directory to ingest and watch")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ingest, err := requireIngest(ctx)
	if err != nil {
		return err
	}

	opts := httpapi.Options{Addr: serveAddr}
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			if opts.Addr == "" {
				opts.Addr = settings.Server.Addr
			}
			opts.MaxUploadBytes = settings.Server.MaxUploadBytes
		}
	}

	if serveWatch != "" {
		if err := startWatch(ctx, ingest, serveWatch); err != nil {
			return fmt.Errorf("watch %s: %w", serveWatch, err)
		}
	}

	server := httpapi.NewServer(httpapi.Services{
		Ingest:      ingest,
		Chat:        chatService,
		Suggestions: suggestionService,
	}, opts)

	fmt.Fprintf(cmd.OutOrStdout(), "docchat API listening on %s\n", server.Addr())
	return server.Serve(ctx)
}
