// Package cli implements the docchat command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired in by main.
var (
	ingestService     driving.IngestService
	chatService       driving.ChatService
	retrievalService  driving.RetrievalService
	suggestionService driving.SuggestionService
	settingsService   driving.SettingsService
)

var verbose bool

// Services are the driving ports the commands call.
type Services struct {
	Ingest      driving.IngestService
	Chat        driving.ChatService
	Retrieval   driving.RetrievalService
	Suggestions driving.SuggestionService
	Settings    driving.SettingsService

	// Close releases resources held by the services. Can be nil.
	Close func() error
}

// Loader builds the core services. It runs at most once, on the first
// command that needs them, so commands like version and settings work
// without a reachable AI provider.
type Loader func(ctx context.Context) (*Services, error)

var (
	loader     Loader
	loadOnce   sync.Once
	loadErr    error
	closeFuncs []func() error
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Chat with your documents",
	Long: `docchat answers questions about documents you upload.

Upload PDF, DOCX, TXT, RTF, Markdown or HTML files, then ask questions in
natural language. Answers are grounded in the most relevant passages and can
be supplemented by Wikipedia, arXiv and web search.

Run 'docchat serve' for the HTTP API, 'docchat chat' for the terminal UI,
or 'docchat mcp serve' to expose the corpus to MCP clients.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
}

// SetServices installs services directly.
func SetServices(s Services) {
	ingestService = s.Ingest
	chatService = s.Chat
	retrievalService = s.Retrieval
	suggestionService = s.Suggestions
	if s.Settings != nil {
		settingsService = s.Settings
	}
	if s.Close != nil {
		closeFuncs = append(closeFuncs, s.Close)
	}
}

// SetLoader installs a lazy service builder.
func SetLoader(l Loader) {
	loader = l
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	for _, closeFn := range closeFuncs {
		if cerr := closeFn(); cerr != nil {
			logger.Warn("closing services: %v", cerr)
		}
	}
	return err
}

// loadServices runs the loader once. A settings service installed directly
// is kept when the loader returns none.
func loadServices(ctx context.Context) error {
	if loader == nil {
		return nil
	}
	loadOnce.Do(func() {
		s, err := loader(ctx)
		if err != nil {
			loadErr = err
			return
		}
		SetServices(*s)
	})
	return loadErr
}

// notConfigured reports a missing service, including why loading failed.
func notConfigured(name string) error {
	if loadErr != nil {
		return fmt.Errorf("%s service not configured: %w", name, loadErr)
	}
	return errors.New(name + " service not configured")
}

func requireIngest(ctx context.Context) (driving.IngestService, error) {
	_ = loadServices(ctx)
	if ingestService == nil {
		return nil, notConfigured("ingest")
	}
	return ingestService, nil
}

func requireChat(ctx context.Context) (driving.ChatService, error) {
	_ = loadServices(ctx)
	if chatService == nil {
		return nil, notConfigured("chat")
	}
	return chatService, nil
}

func requireRetrieval(ctx context.Context) (driving.RetrievalService, error) {
	_ = loadServices(ctx)
	if retrievalService == nil {
		return nil, notConfigured("retrieval")
	}
	return retrievalService, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
