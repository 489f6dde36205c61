// Package tools builds the auxiliary tools available to the agent.
package tools

import (
	"fmt"
	"slices"
	"time"

	"github.com/custodia-labs/docchat/internal/adapters/driven/tools/arxiv"
	"github.com/custodia-labs/docchat/internal/adapters/driven/tools/tavily"
	"github.com/custodia-labs/docchat/internal/adapters/driven/tools/wikipedia"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Config configures tool construction.
type Config struct {
	// Names lists the tools to enable.
	Names []string

	// Timeout bounds each tool's HTTP requests.
	Timeout time.Duration

	// TavilyAPIKey enables web search. When set, tavily is enabled even if
	// Names omits it.
	TavilyAPIKey string
}

// Available returns the names of all tool implementations.
func Available() []string {
	return []string{wikipedia.Name, arxiv.Name, tavily.Name}
}

// Build creates the configured tools in a stable order.
// Unknown names and tools missing credentials are reported as warnings.
func Build(cfg Config) ([]driven.Tool, []string) {
	names := slices.Clone(cfg.Names)
	if cfg.TavilyAPIKey != "" && !slices.Contains(names, tavily.Name) {
		names = append(names, tavily.Name)
	}

	var (
		built    []driven.Tool
		warnings []string
		seen     = make(map[string]bool)
	)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case wikipedia.Name:
			built = append(built, wikipedia.New(wikipedia.Config{Timeout: cfg.Timeout}))
		case arxiv.Name:
			built = append(built, arxiv.New(arxiv.Config{Timeout: cfg.Timeout}))
		case tavily.Name:
			t, err := tavily.New(tavily.Config{APIKey: cfg.TavilyAPIKey, Timeout: cfg.Timeout})
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("tavily disabled: %s is not set", tavily.EnvAPIKey))
				continue
			}
			built = append(built, t)
		default:
			warnings = append(warnings, fmt.Sprintf("unknown tool %q ignored", name))
		}
	}
	return built, warnings
}
