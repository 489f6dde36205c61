// Package wikipedia provides an encyclopedia lookup tool backed by the
// MediaWiki search API and the Wikipedia REST page summary endpoint.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure Tool implements the interface.
var _ driven.Tool = (*Tool)(nil)

// Name is the tool identifier.
const Name = "wikipedia"

// Default configuration values.
const (
	DefaultBaseURL   = "https://en.wikipedia.org"
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "docchat/1.0 (https://github.com/custodia-labs/docchat)"
)

// Config holds configuration for the Wikipedia tool.
type Config struct {
	// BaseURL is the wiki host (default: https://en.wikipedia.org).
	BaseURL string

	// Timeout bounds each HTTP request (default: 10s).
	Timeout time.Duration

	// UserAgent is sent with every request, as Wikimedia requires one.
	UserAgent string
}

// Tool looks up the best-matching article and returns its summary.
type Tool struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type summaryResponse struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// New creates a Wikipedia tool.
func New(cfg Config) *Tool {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Tool{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
	}
}

// Name returns the tool identifier.
func (t *Tool) Name() string { return Name }

// Description tells planners what the tool is for.
func (t *Tool) Description() string {
	return "Search Wikipedia for general knowledge, definitions and encyclopedic background."
}

// Invoke searches for args["query"] and returns the top article summary as
// "### Wikipedia: <title>\n\n<extract>\n\n**Source:** <url>".
func (t *Tool) Invoke(ctx context.Context, args map[string]string) (string, error) {
	query := strings.TrimSpace(args["query"])
	if query == "" {
		return "", fmt.Errorf("%w: wikipedia: query is required", domain.ErrToolFailure)
	}

	title, err := t.search(ctx, query)
	if err != nil {
		return "", err
	}
	logger.Debug("wikipedia: %q resolved to %q", query, title)

	summary, err := t.summary(ctx, title)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("### Wikipedia: %s\n\n%s\n\n**Source:** %s",
		summary.Title, summary.Extract, summary.ContentURLs.Desktop.Page), nil
}

func (t *Tool) search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", "1")

	var resp searchResponse
	if err := t.getJSON(ctx, t.baseURL+"/w/api.php?"+params.Encode(), &resp); err != nil {
		return "", err
	}
	if len(resp.Query.Search) == 0 {
		return "", fmt.Errorf("%w: wikipedia: no article found for %q", domain.ErrToolFailure, query)
	}
	return resp.Query.Search[0].Title, nil
}

func (t *Tool) summary(ctx context.Context, title string) (*summaryResponse, error) {
	encoded := url.PathEscape(strings.ReplaceAll(title, " ", "_"))

	var resp summaryResponse
	if err := t.getJSON(ctx, t.baseURL+"/api/rest_v1/page/summary/"+encoded, &resp); err != nil {
		return nil, err
	}
	if resp.Extract == "" {
		return nil, fmt.Errorf("%w: wikipedia: empty summary for %q", domain.ErrToolFailure, title)
	}
	return &resp, nil
}

func (t *Tool) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: wikipedia: create request: %w", domain.ErrToolFailure, err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: wikipedia: send request: %w", domain.ErrToolFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: wikipedia (status %d): %s", domain.ErrToolFailure, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: wikipedia: decode response: %w", domain.ErrToolFailure, err)
	}
	return nil
}
