package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_Short(t *testing.T) {
	assert.Equal(t, "Search uploaded documents", searchCmd.Short)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("search")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "k", flag.Shorthand)
	assert.Equal(t, "3", flag.DefValue)
}

func TestSearchCmd_PassesQueryLimitAndFilter(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("search", "revenue growth", "-k", "5", "--document", "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "revenue growth", ts.retrieval.query)
	assert.Equal(t, 5, ts.retrieval.k)
	assert.Equal(t, domain.SearchFilter{DocumentID: "doc-1"}, ts.retrieval.filter)
}

func TestSearchCmd_Table(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.results = []domain.RetrievedChunk{
		{DocumentID: "doc-1", Source: "report.pdf", Text: "Revenue grew\n\nby 12%.", Similarity: 0.91},
		{DocumentID: "doc-2", Text: "Costs fell.", Similarity: 0.42},
	}

	out, err := execute("search", "revenue")

	require.NoError(t, err)
	assert.Contains(t, out, "[1] report.pdf (0.91)")
	assert.Contains(t, out, "Revenue grew by 12%.")
	// Missing source falls back to the document ID.
	assert.Contains(t, out, "[2] doc-2 (0.42)")
}

func TestSearchCmd_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.results = []domain.RetrievedChunk{
		{DocumentID: "doc-1", Source: "report.pdf", Text: "Revenue grew.", Similarity: 0.9},
	}

	out, err := execute("search", "revenue", "--json")
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "doc-1", decoded[0]["doc_id"])
	assert.Equal(t, "Revenue grew.", decoded[0]["chunk_text"])
}

func TestSearchCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := clearServices()
	defer cleanup()

	_, err := execute("search", "test")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval service not configured")
}

func TestSearchCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.err = domain.ErrEmbeddingUnavailable

	_, err := execute("search", "test")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "search failed")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestOutputSearchJSON_EmptyResults(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	err := outputSearchJSON(rootCmd, nil)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "[]")
}

func TestOutputSearchTable_EmptyResults(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)

	err := outputSearchTable(rootCmd, nil)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No results found")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n b\t\tc", 20))
	assert.Equal(t, "abcde...", snippet("abcdefgh", 5))
	assert.Equal(t, "ééé...", snippet("éééééé", 3))
}
