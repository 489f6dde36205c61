package services

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMTemperature    = "llm.temperature"
	keyChunkSize         = "chunking.size"
	keyChunkOverlap      = "chunking.overlap"
	keyTopK              = "retrieval.top_k"
	keyEmbedTimeout      = "retrieval.embed_timeout"
	keyPromptMaxChars    = "prompt.max_chars"
	keyHistoryWindow     = "prompt.history_window"
	keyMaxToolCalls      = "agent.max_tool_calls"
	keyToolTimeout       = "agent.tool_timeout"
	keyModelTimeout      = "agent.model_timeout"
	keyClosingMarker     = "agent.closing_marker"
	keyTools             = "agent.tools"
	keyIngestBatchSize   = "ingest.batch_size"
	keyIngestConcurrency = "ingest.concurrency"
	keyIngestAttempts    = "ingest.max_attempts"
	keyIngestRPS         = "ingest.requests_per_second"
	keyStorageBackend    = "storage.backend"
	keyStorageDataDir    = "storage.data_dir"
	keyTranscripts       = "storage.transcripts"
	keyServerAddr        = "server.addr"
	keyMaxUploadBytes    = "server.max_upload_bytes"
	keySuggestionsFile   = "server.suggestions_file"
)

// valueKind is how a config value is parsed from text.
type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindDuration
	kindBool
	kindList
)

// settableKeys lists the keys accepted by Set and how to parse them.
var settableKeys = map[string]valueKind{
	keyEmbedProvider:     kindString,
	keyEmbedModel:        kindString,
	keyEmbedBaseURL:      kindString,
	keyEmbedAPIKey:       kindString,
	keyLLMProvider:       kindString,
	keyLLMModel:          kindString,
	keyLLMBaseURL:        kindString,
	keyLLMAPIKey:         kindString,
	keyLLMTemperature:    kindFloat,
	keyChunkSize:         kindInt,
	keyChunkOverlap:      kindInt,
	keyTopK:              kindInt,
	keyEmbedTimeout:      kindDuration,
	keyPromptMaxChars:    kindInt,
	keyHistoryWindow:     kindInt,
	keyMaxToolCalls:      kindInt,
	keyToolTimeout:       kindDuration,
	keyModelTimeout:      kindDuration,
	keyClosingMarker:     kindString,
	keyTools:             kindList,
	keyIngestBatchSize:   kindInt,
	keyIngestConcurrency: kindInt,
	keyIngestAttempts:    kindInt,
	keyIngestRPS:         kindFloat,
	keyStorageBackend:    kindString,
	keyStorageDataDir:    kindString,
	keyTranscripts:       kindBool,
	keyServerAddr:        kindString,
	keyMaxUploadBytes:    kindInt,
	keySuggestionsFile:   kindString,
}

// Environment variables that override stored settings when set.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvAnthropicAPIKey   = "ANTHROPIC_API_KEY"
	EnvLLMProvider       = "DOCCHAT_LLM_PROVIDER"
	EnvEmbeddingProvider = "DOCCHAT_EMBEDDING_PROVIDER"
)

// defaultOllamaURL is filled in for local providers without a base URL.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// The aiValidator is optional (can be nil).
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// SetEnvLookup replaces os.Getenv for environment overrides.
func (s *SettingsService) SetEnvLookup(getenv func(string) string) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	s.getenv = getenv
}

// Get retrieves current application settings with environment overrides applied.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := s.stored()
	s.applyEnv(settings)
	fillModelDefaults(settings)
	return settings, nil
}

// stored reads settings from the config store, falling back to defaults.
func (s *SettingsService) stored() *domain.AppSettings {
	d := domain.DefaultAppSettings()

	return &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:       s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:     s.configStore.GetString(keyLLMBaseURL),
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkSize, d.Chunking.Size),
			Overlap: s.getIntAllowZero(keyChunkOverlap, d.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:         s.getInt(keyTopK, d.Retrieval.TopK),
			EmbedTimeout: s.getDuration(keyEmbedTimeout, d.Retrieval.EmbedTimeout),
		},
		Prompt: domain.PromptSettings{
			MaxChars:      s.getInt(keyPromptMaxChars, d.Prompt.MaxChars),
			HistoryWindow: s.getIntAllowZero(keyHistoryWindow, d.Prompt.HistoryWindow),
		},
		Agent: domain.AgentSettings{
			MaxToolCalls:  s.getIntAllowZero(keyMaxToolCalls, d.Agent.MaxToolCalls),
			ToolTimeout:   s.getDuration(keyToolTimeout, d.Agent.ToolTimeout),
			ModelTimeout:  s.getDuration(keyModelTimeout, d.Agent.ModelTimeout),
			ClosingMarker: s.getString(keyClosingMarker, d.Agent.ClosingMarker),
			Tools:         s.getStringSlice(keyTools, d.Agent.Tools),
		},
		Ingest: domain.IngestSettings{
			BatchSize:         s.getInt(keyIngestBatchSize, d.Ingest.BatchSize),
			Concurrency:       s.getInt(keyIngestConcurrency, d.Ingest.Concurrency),
			MaxAttempts:       s.getInt(keyIngestAttempts, d.Ingest.MaxAttempts),
			RequestsPerSecond: s.getFloat(keyIngestRPS, d.Ingest.RequestsPerSecond),
		},
		Storage: domain.StorageSettings{
			Backend:     s.getBackend(d.Storage.Backend),
			DataDir:     s.configStore.GetString(keyStorageDataDir),
			Transcripts: s.getBool(keyTranscripts, d.Storage.Transcripts),
		},
		Server: domain.ServerSettings{
			Addr:            s.getString(keyServerAddr, d.Server.Addr),
			MaxUploadBytes:  int64(s.getInt(keyMaxUploadBytes, int(d.Server.MaxUploadBytes))),
			SuggestionsFile: s.configStore.GetString(keySuggestionsFile),
		},
	}
}

// applyEnv overlays provider choices and API keys from the environment.
func (s *SettingsService) applyEnv(settings *domain.AppSettings) {
	if p := domain.AIProvider(s.getenv(EnvEmbeddingProvider)); p.IsValid() && p != settings.Embedding.Provider {
		settings.Embedding.Provider = p
		settings.Embedding.Model = ""
	}
	if p := domain.AIProvider(s.getenv(EnvLLMProvider)); p.IsValid() && p != settings.LLM.Provider {
		settings.LLM.Provider = p
		settings.LLM.Model = ""
	}

	keys := map[domain.AIProvider]string{
		domain.AIProviderOpenAI:    s.getenv(EnvOpenAIAPIKey),
		domain.AIProviderAnthropic: s.getenv(EnvAnthropicAPIKey),
	}
	if key := keys[settings.Embedding.Provider]; key != "" {
		settings.Embedding.APIKey = key
	}
	if key := keys[settings.LLM.Provider]; key != "" {
		settings.LLM.APIKey = key
	}
}

// fillModelDefaults picks the default model and local base URL for
// configured providers that leave them empty.
func fillModelDefaults(settings *domain.AppSettings) {
	if p := settings.Embedding.Provider; p.IsValid() {
		if settings.Embedding.Model == "" {
			settings.Embedding.Model = domain.DefaultEmbeddingModels()[p]
		}
		if p.IsLocal() && settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	}
	if p := settings.LLM.Provider; p.IsValid() {
		if settings.LLM.Model == "" {
			settings.LLM.Model = domain.DefaultLLMModels()[p]
		}
		if p.IsLocal() && settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaURL
		}
	}
}

// Save persists application settings.
// Empty API keys are not written so stored keys survive a save.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTemperature, settings.LLM.Temperature},
		{keyChunkSize, settings.Chunking.Size},
		{keyChunkOverlap, settings.Chunking.Overlap},
		{keyTopK, settings.Retrieval.TopK},
		{keyEmbedTimeout, settings.Retrieval.EmbedTimeout.String()},
		{keyPromptMaxChars, settings.Prompt.MaxChars},
		{keyHistoryWindow, settings.Prompt.HistoryWindow},
		{keyMaxToolCalls, settings.Agent.MaxToolCalls},
		{keyToolTimeout, settings.Agent.ToolTimeout.String()},
		{keyModelTimeout, settings.Agent.ModelTimeout.String()},
		{keyClosingMarker, settings.Agent.ClosingMarker},
		{keyTools, append([]string{}, settings.Agent.Tools...)},
		{keyIngestBatchSize, settings.Ingest.BatchSize},
		{keyIngestConcurrency, settings.Ingest.Concurrency},
		{keyIngestAttempts, settings.Ingest.MaxAttempts},
		{keyIngestRPS, settings.Ingest.RequestsPerSecond},
		{keyStorageBackend, string(settings.Storage.Backend)},
		{keyStorageDataDir, settings.Storage.DataDir},
		{keyTranscripts, settings.Storage.Transcripts},
		{keyServerAddr, settings.Server.Addr},
		{keyMaxUploadBytes, int(settings.Server.MaxUploadBytes)},
		{keySuggestionsFile, settings.Server.SuggestionsFile},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	return nil
}

// Keys returns the keys accepted by Set in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses value for key and stores it.
// Values that would make the settings inconsistent are rejected.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	parsed, err := parseValue(kind, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	if err := checkValue(key, parsed, s.stored()); err != nil {
		return err
	}
	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// checkValue applies the ValidateSettings rules to a single new value.
func checkValue(key string, v any, current *domain.AppSettings) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", domain.ErrInvalidInput, key, fmt.Sprintf(format, args...))
	}
	switch key {
	case keyChunkSize:
		if n := v.(int); n <= 0 || current.Chunking.Overlap >= n {
			return invalid("must be positive and larger than chunking.overlap (%d)", current.Chunking.Overlap)
		}
	case keyChunkOverlap:
		if n := v.(int); n < 0 || n >= current.Chunking.Size {
			return invalid("must be in [0, %d)", current.Chunking.Size)
		}
	case keyTopK, keyPromptMaxChars, keyIngestBatchSize, keyIngestConcurrency, keyIngestAttempts:
		if v.(int) <= 0 {
			return invalid("must be positive")
		}
	case keyMaxToolCalls, keyHistoryWindow:
		if v.(int) < 0 {
			return invalid("cannot be negative")
		}
	case keyStorageBackend:
		if !domain.StorageBackend(v.(string)).IsValid() {
			return invalid("unknown backend %q", v)
		}
	case keyEmbedProvider:
		if p := domain.AIProvider(v.(string)); p != "" && !slices.Contains(domain.AllEmbeddingProviders(), p) {
			return invalid("provider %s does not support embeddings", p)
		}
	case keyLLMProvider:
		if p := domain.AIProvider(v.(string)); p != "" && !p.IsValid() {
			return invalid("invalid LLM provider: %s", p)
		}
	}
	return nil
}

func parseValue(kind valueKind, value string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.Atoi(value)
	case kindFloat:
		return strconv.ParseFloat(value, 64)
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		return d.String(), nil
	case kindBool:
		return strconv.ParseBool(value)
	case kindList:
		items := []string{}
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	default:
		return value, nil
	}
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if !slices.Contains(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings := s.stored()
	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	if model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[provider]
	}
	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings := s.stored()
	settings.LLM.Provider = provider
	settings.LLM.Model = model
	if model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}
	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = defaultOllamaURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that settings are internally consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return ValidateSettings(settings)
}

// ValidateSettings checks a settings value without touching storage.
func ValidateSettings(settings *domain.AppSettings) error {
	c := settings.Chunking
	if c.Size <= 0 {
		return fmt.Errorf("%w: chunking.size must be positive, got %d", domain.ErrInvalidInput, c.Size)
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("%w: chunking.overlap must be in [0, %d), got %d", domain.ErrInvalidInput, c.Size, c.Overlap)
	}
	if settings.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive, got %d", domain.ErrInvalidInput, settings.Retrieval.TopK)
	}
	if settings.Agent.MaxToolCalls < 0 {
		return fmt.Errorf("%w: agent.max_tool_calls cannot be negative", domain.ErrInvalidInput)
	}
	if !settings.Storage.Backend.IsValid() {
		return fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, settings.Storage.Backend)
	}
	if p := settings.Embedding.Provider; p != "" && !slices.Contains(domain.AllEmbeddingProviders(), p) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, p)
	}
	if p := settings.LLM.Provider; p != "" && !p.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, p)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(ctx, &settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig(ctx context.Context) error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(ctx, &settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getIntAllowZero treats a stored zero as a real value.
func (s *SettingsService) getIntAllowZero(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetDuration(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getStringSlice treats a stored empty list as a real value.
func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	if _, exists := s.configStore.Get(key); !exists {
		return append([]string(nil), defaultVal...)
	}
	return s.configStore.GetStringSlice(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	val := s.configStore.GetString(keyStorageBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.StorageBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
