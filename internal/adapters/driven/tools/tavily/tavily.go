// Package tavily provides a web search tool backed by the Tavily API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Tool implements the interface.
var _ driven.Tool = (*Tool)(nil)

// Name is the tool identifier.
const Name = "tavily"

// EnvAPIKey is the environment variable holding the API key.
//
//nolint:gosec // G101: environment variable name, not a credential.
const EnvAPIKey = "TAVILY_API_KEY"

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.tavily.com"
	DefaultTimeout    = 10 * time.Second
	DefaultMaxResults = 5
)

// Config holds configuration for the Tavily tool.
type Config struct {
	// APIKey is the Tavily API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.tavily.com).
	BaseURL string

	// Timeout bounds the HTTP request (default: 10s).
	Timeout time.Duration

	// MaxResults is the number of results returned (default: 5).
	MaxResults int
}

// Tool runs web searches.
type Tool struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	maxResults int
}

type searchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// New creates a Tavily tool.
func New(cfg Config) (*Tool, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: tavily: API key is required", domain.ErrInvalidInput)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	return &Tool{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		maxResults: cfg.MaxResults,
	}, nil
}

// Name returns the tool identifier.
func (t *Tool) Name() string { return Name }

// Description tells planners what the tool is for.
func (t *Tool) Description() string {
	return "Search the web for current events and information not found in the documents."
}

// Invoke searches the web for args["query"].
func (t *Tool) Invoke(ctx context.Context, args map[string]string) (string, error) {
	query := strings.TrimSpace(args["query"])
	if query == "" {
		return "", fmt.Errorf("%w: tavily: query is required", domain.ErrToolFailure)
	}

	jsonBody, err := json.Marshal(searchRequest{APIKey: t.apiKey, Query: query, MaxResults: t.maxResults})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/search", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: tavily: create request: %w", domain.ErrToolFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: tavily: send request: %w", domain.ErrToolFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: tavily (status %d): %s", domain.ErrToolFailure, resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("%w: tavily: decode response: %w", domain.ErrToolFailure, err)
	}
	if len(sr.Results) == 0 {
		return "", fmt.Errorf("%w: tavily: no results for %q", domain.ErrToolFailure, query)
	}

	var b strings.Builder
	for i, r := range sr.Results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s (%s)\n%s", i+1, r.Title, r.URL, r.Content)
	}
	return b.String(), nil
}
