package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if the provider runs on this machine.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string

	// BaseURL is the API endpoint (for Ollama or compatible APIs).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string

	// Temperature is passed to the model on every turn.
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkingSettings configures the chunker.
type ChunkingSettings struct {
	Size    int
	Overlap int
}

// RetrievalSettings configures the retriever.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per query.
	TopK int

	// EmbedTimeout bounds the query embedding call.
	EmbedTimeout time.Duration
}

// PromptSettings configures prompt assembly.
type PromptSettings struct {
	// MaxChars is the assembled prompt budget in characters.
	MaxChars int

	// HistoryWindow is the number of recent messages included.
	HistoryWindow int
}

// AgentSettings configures the conversation agent.
type AgentSettings struct {
	// MaxToolCalls caps tool invocations per turn.
	MaxToolCalls int

	ToolTimeout  time.Duration
	ModelTimeout time.Duration

	// ClosingMarker is the token the model emits to end the conversation.
	ClosingMarker string

	// Tools lists enabled tool names.
	Tools []string
}

// IngestSettings configures bulk ingestion.
type IngestSettings struct {
	// BatchSize is the number of chunks per embedding request.
	BatchSize int

	// Concurrency is the number of embedding requests in flight.
	Concurrency int

	// MaxAttempts bounds embedding retries.
	MaxAttempts int

	// RequestsPerSecond limits embedding requests. Zero disables limiting.
	RequestsPerSecond float64
}

// StorageBackend selects where the index snapshot is persisted.
type StorageBackend string

// Storage backends.
const (
	StorageMemory StorageBackend = "memory"
	StorageJSON   StorageBackend = "json"
	StorageSQLite StorageBackend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageMemory, StorageJSON, StorageSQLite:
		return true
	default:
		return false
	}
}

// StorageSettings configures persistence.
type StorageSettings struct {
	Backend StorageBackend

	// DataDir holds snapshots and transcripts. Empty means ~/.docchat/data.
	DataDir string

	// Transcripts enables persisting conversations across restarts.
	Transcripts bool
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr string

	// MaxUploadBytes limits the size of an uploaded document.
	MaxUploadBytes int64

	// SuggestionsFile optionally points at a YAML list of suggested prompts.
	SuggestionsFile string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunking  ChunkingSettings
	Retrieval RetrievalSettings
	Prompt    PromptSettings
	Agent     AgentSettings
	Ingest    IngestSettings
	Storage   StorageSettings
	Server    ServerSettings
}

// Default setting values.
const (
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultTopK           = 3
	DefaultMaxToolCalls   = 3
	DefaultClosingMarker  = "[END_CONVERSATION]"
	DefaultPromptMaxChars = 12000
	DefaultHistoryWindow  = 6
	DefaultServerAddr     = ":8000"
)

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; the environment or config file sets them.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalSettings{
			TopK:         DefaultTopK,
			EmbedTimeout: 15 * time.Second,
		},
		Prompt: PromptSettings{
			MaxChars:      DefaultPromptMaxChars,
			HistoryWindow: DefaultHistoryWindow,
		},
		Agent: AgentSettings{
			MaxToolCalls:  DefaultMaxToolCalls,
			ToolTimeout:   10 * time.Second,
			ModelTimeout:  60 * time.Second,
			ClosingMarker: DefaultClosingMarker,
			Tools:         []string{"wikipedia", "arxiv"},
		},
		Ingest: IngestSettings{
			BatchSize:         32,
			Concurrency:       4,
			MaxAttempts:       4,
			RequestsPerSecond: 5,
		},
		Storage: StorageSettings{
			Backend:     StorageJSON,
			Transcripts: true,
		},
		Server: ServerSettings{
			Addr:           DefaultServerAddr,
			MaxUploadBytes: 32 << 20,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
