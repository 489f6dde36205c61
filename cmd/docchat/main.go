// Command docchat answers questions about uploaded documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docchat/internal/adapters/driven/tools"
	"github.com/custodia-labs/docchat/internal/adapters/driving/cli"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/normalisers/docx"
	"github.com/custodia-labs/docchat/internal/normalisers/html"
	"github.com/custodia-labs/docchat/internal/normalisers/markdown"
	"github.com/custodia-labs/docchat/internal/normalisers/pdf"
	"github.com/custodia-labs/docchat/internal/normalisers/plaintext"
	"github.com/custodia-labs/docchat/internal/normalisers/rtf"
	"github.com/custodia-labs/docchat/internal/postprocessors"
)

// Set via -ldflags "-X main.version=...".
var version string

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine.
	_ = godotenv.Load()

	configDir, err := file.DefaultDir()
	if err != nil {
		return err
	}
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	cli.SetVersion(version)
	cli.SetServices(cli.Services{Settings: settingsService})
	cli.SetLoader(func(ctx context.Context) (*cli.Services, error) {
		return buildServices(ctx, configDir, settingsService)
	})

	return cli.Execute(context.Background())
}

// buildServices wires the AI providers, storage and core services.
func buildServices(ctx context.Context, configDir string, settingsService *services.SettingsService) (*cli.Services, error) {
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	aiResult, err := ai.Init(ctx, settings)
	if err != nil {
		return nil, err
	}
	for _, w := range aiResult.Warnings {
		logger.Warn("%s", w)
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		aiResult.Close()
		return errors.Join(errs...)
	}
	fail := func(err error) (*cli.Services, error) {
		_ = closeAll()
		return nil, err
	}

	dataDir := settings.Storage.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(configDir, "data")
	}

	var snapshots driven.IndexSnapshotStore
	switch settings.Storage.Backend {
	case domain.StorageJSON:
		store, err := jsonfile.NewStore(dataDir)
		if err != nil {
			return fail(fmt.Errorf("opening snapshot store: %w", err))
		}
		closers = append(closers, store.Close)
		snapshots = store
	case domain.StorageSQLite:
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return fail(fmt.Errorf("opening snapshot store: %w", err))
		}
		closers = append(closers, store.Close)
		snapshots = store
	case domain.StorageMemory:
	default:
		return fail(fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, settings.Storage.Backend))
	}

	var transcripts driven.TranscriptStore
	if settings.Storage.Transcripts {
		store, err := bolt.NewTranscriptStore(dataDir)
		if err != nil {
			return fail(fmt.Errorf("opening transcript store: %w", err))
		}
		closers = append(closers, store.Close)
		transcripts = store
	}

	registry := services.NewNormaliserRegistry(
		plaintext.New(),
		markdown.New(),
		html.New(),
		pdf.New(),
		docx.New(),
		rtf.New(),
	)
	chunker, err := postprocessors.NewChunker(settings.Chunking)
	if err != nil {
		return fail(err)
	}

	index := memory.NewVectorIndex()
	ingest := services.NewIngestService(registry, chunker, aiResult.IngestEmbedder, index, snapshots, settings.Ingest)
	if aiResult.LLMService != nil {
		ingest.SetChatModel(settings.LLM.Model)
	}
	if err := ingest.Restore(ctx); err != nil {
		logger.Warn("Restoring corpus: %v", err)
	}

	retriever := services.NewRetriever(aiResult.EmbeddingService, index, settings.Retrieval)

	agentTools, warnings := tools.Build(tools.Config{
		Names:        settings.Agent.Tools,
		Timeout:      settings.Agent.ToolTimeout,
		TavilyAPIKey: os.Getenv("TAVILY_API_KEY"),
	})
	for _, w := range warnings {
		logger.Warn("%s", w)
	}

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return fail(err)
	}
	assembler := services.NewPromptAssembler(prompts, settings.Prompt, settings.Agent.ClosingMarker)
	agent := services.NewAgent(retriever, assembler, aiResult.LLMService, agentTools, settings.Agent,
		agentOptions(settings.LLM, prompts)...)
	chat := services.NewChatService(agent, transcripts)

	var static []string
	if path := settings.Server.SuggestionsFile; path != "" {
		static, err = services.LoadSuggestions(path)
		if err != nil {
			logger.Warn("Loading suggestions: %v", err)
		}
	}

	return &cli.Services{
		Ingest:      ingest,
		Chat:        chat,
		Retrieval:   retriever,
		Suggestions: services.NewSuggestionService(ingest, static),
		Close:       closeAll,
	}, nil
}

// agentOptions carries the prompt store and model settings into the agent.
func agentOptions(llm domain.LLMSettings, prompts driven.PromptStore) []services.AgentOption {
	return []services.AgentOption{
		services.WithPromptStore(prompts),
		services.WithChatOptions(driven.ChatOptions{Temperature: llm.Temperature}),
	}
}
