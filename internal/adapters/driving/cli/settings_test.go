package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSettingsShow(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("settings", "show")

	require.NoError(t, err)
	for _, section := range []string{"[Embedding]", "[LLM]", "[Chunking]", "[Retrieval]", "[Prompt]",
		"[Agent]", "[Ingest]", "[Storage]", "[Server]"} {
		assert.Contains(t, out, section)
	}
	assert.Contains(t, out, "Size: 1000")
	assert.Contains(t, out, "Overlap: 200")
	assert.Contains(t, out, "Top K: 3")
	assert.Contains(t, out, "Closing marker: [END_CONVERSATION]")
	assert.Contains(t, out, "Address: :8000")
}

func TestSettingsSet(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("settings", "set", "chunking.size", "800")

	require.NoError(t, err)
	assert.Contains(t, out, "Set chunking.size = 800")
	settings, err := ts.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, 800, settings.Chunking.Size)
}

func TestSettingsSet_Rejects(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("settings", "set", "no.such.key", "1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Overlap must stay below size.
	_, err = execute("settings", "set", "chunking.overlap", "5000")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsKeys(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("settings", "keys")

	require.NoError(t, err)
	assert.Contains(t, out, "chunking.size\n")
	assert.Contains(t, out, "agent.tools\n")
}

func TestSettingsEmbedding_Interactive(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	rootCmd.SetIn(strings.NewReader("1\n\n"))

	out, err := execute("settings", "embedding")

	require.NoError(t, err)
	assert.Contains(t, out, "Validating configuration... OK")
	settings, err := ts.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
}

func TestSettingsLLM_InteractiveWithAPIKey(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	rootCmd.SetIn(strings.NewReader("2\ngpt-4o\nsk-test-1234567890\n"))

	out, err := execute("settings", "llm")

	require.NoError(t, err)
	assert.Contains(t, out, "LLM provider configured")
	settings, err := ts.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.LLM.Provider)
	assert.Equal(t, "gpt-4o", settings.LLM.Model)
	assert.Equal(t, "sk-test-1234567890", settings.LLM.APIKey)
}

func TestSettingsLLM_MissingAPIKey(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	rootCmd.SetIn(strings.NewReader("2\n\n\n"))

	_, err := execute("settings", "llm")

	assert.EqualError(t, err, "API key is required for this provider")
}

func TestSettings_NotConfigured(t *testing.T) {
	cleanup := clearServices()
	defer cleanup()

	for _, args := range [][]string{
		{"settings", "show"},
		{"settings", "set", "chunking.size", "1"},
		{"settings", "keys"},
		{"settings", "embedding"},
		{"settings", "llm"},
	} {
		_, err := execute(args...)
		assert.EqualError(t, err, "settings service not configured", "%v", args)
	}
}
