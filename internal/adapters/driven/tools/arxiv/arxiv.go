// Package arxiv provides a research paper search tool backed by the arXiv
// Atom query API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure Tool implements the interface.
var _ driven.Tool = (*Tool)(nil)

// Name is the tool identifier.
const Name = "arxiv"

// Default configuration values.
const (
	DefaultBaseURL       = "https://export.arxiv.org/api/query"
	DefaultTimeout       = 10 * time.Second
	DefaultMaxResults    = 3
	DefaultSummaryLength = 1000
)

// Config holds configuration for the arXiv tool.
type Config struct {
	// BaseURL is the query endpoint (default: https://export.arxiv.org/api/query).
	BaseURL string

	// Timeout bounds the HTTP request (default: 10s).
	Timeout time.Duration

	// MaxResults is the number of papers returned (default: 3).
	MaxResults int

	// SummaryLength truncates each abstract, in characters (default: 1000).
	SummaryLength int
}

// Tool searches arXiv and formats the top papers.
type Tool struct {
	client        *http.Client
	baseURL       string
	maxResults    int
	summaryLength int
}

type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	Title     string   `xml:"title"`
	Published string   `xml:"published"`
	Summary   string   `xml:"summary"`
	Authors   []author `xml:"author"`
}

type author struct {
	Name string `xml:"name"`
}

// New creates an arXiv tool.
func New(cfg Config) *Tool {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.SummaryLength <= 0 {
		cfg.SummaryLength = DefaultSummaryLength
	}
	return &Tool{
		client:        &http.Client{Timeout: cfg.Timeout},
		baseURL:       cfg.BaseURL,
		maxResults:    cfg.MaxResults,
		summaryLength: cfg.SummaryLength,
	}
}

// Name returns the tool identifier.
func (t *Tool) Name() string { return Name }

// Description tells planners what the tool is for.
func (t *Tool) Description() string {
	return "Search arXiv for scientific papers and preprints in physics, mathematics and computer science."
}

// Invoke searches arXiv for args["query"]. Each paper is rendered as a
// Published/Title/Authors/Summary block; blocks are separated by a blank line.
func (t *Tool) Invoke(ctx context.Context, args map[string]string) (string, error) {
	query := strings.TrimSpace(args["query"])
	if query == "" {
		return "", fmt.Errorf("%w: arxiv: query is required", domain.ErrToolFailure)
	}

	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(t.maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: arxiv: create request: %w", domain.ErrToolFailure, err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: arxiv: send request: %w", domain.ErrToolFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: arxiv (status %d): %s", domain.ErrToolFailure, resp.StatusCode, string(body))
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return "", fmt.Errorf("%w: arxiv: decode feed: %w", domain.ErrToolFailure, err)
	}
	if len(f.Entries) == 0 {
		return "No good Arxiv Result was found", nil
	}

	blocks := make([]string, 0, len(f.Entries))
	for _, e := range f.Entries {
		blocks = append(blocks, t.format(e))
	}
	return strings.Join(blocks, "\n\n"), nil
}

func (t *Tool) format(e entry) string {
	names := make([]string, len(e.Authors))
	for i, a := range e.Authors {
		names[i] = a.Name
	}

	published := e.Published
	if ts, err := time.Parse(time.RFC3339, e.Published); err == nil {
		published = ts.Format("2006-01-02")
	}

	summary := collapse(e.Summary)
	if r := []rune(summary); len(r) > t.summaryLength {
		summary = string(r[:t.summaryLength])
	}

	return fmt.Sprintf("Published: %s\nTitle: %s\nAuthors: %s\nSummary: %s",
		published, collapse(e.Title), strings.Join(names, ", "), summary)
}

// collapse joins the hard-wrapped lines arXiv returns.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
