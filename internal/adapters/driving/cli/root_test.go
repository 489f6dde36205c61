package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/logger"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "docchat", rootCmd.Use)
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ingest", "chat", "search", "status", "reset", "suggest", "settings", "mcp", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCmd_VerboseFlag(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer logger.SetVerbose(false)

	_, err := execute("--verbose", "version")

	require.NoError(t, err)
	assert.True(t, logger.IsVerbose())
}

func TestLoader_RunsLazilyOnce(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	ingestService = nil

	calls := 0
	mock := &mockIngestService{}
	resetLoader(func(context.Context) (*Services, error) {
		calls++
		return &Services{Ingest: mock}, nil
	})

	_, err := execute("version")
	require.NoError(t, err)
	assert.Equal(t, 0, calls, "version must not build services")

	_, err = execute("status")
	require.NoError(t, err)
	_, err = execute("status")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestLoader_ErrorExplainsMissingService(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	ingestService = nil
	resetLoader(func(context.Context) (*Services, error) {
		return nil, errors.New("embedding provider is not configured")
	})

	_, err := execute("status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest service not configured")
	assert.Contains(t, err.Error(), "embedding provider is not configured")
}

func TestSetServices_KeepsSettingsWhenUnset(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	SetServices(Services{Ingest: ts.ingest})

	assert.Equal(t, ts.settings, settingsService)
}

func TestExecute_RunsCloseFuncs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	closed := false
	SetServices(Services{
		Ingest:   ingestService,
		Chat:     chatService,
		Settings: settingsService,
		Close: func() error {
			closed = true
			return nil
		},
	})
	rootCmd.SetArgs([]string{"version"})

	require.NoError(t, Execute(context.Background()))
	assert.True(t, closed)
}

func TestSetVersion(t *testing.T) {
	old := version
	defer func() { version = old }()

	SetVersion("")
	assert.Equal(t, old, version)
	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}
