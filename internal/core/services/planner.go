package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ToolCall is a tool the planner wants invoked.
type ToolCall struct {
	Name      string
	Arguments map[string]string
}

// PlanState is what a planner sees when choosing the next tool call.
type PlanState struct {
	// Message is the user's message for this turn.
	Message string

	// Available lists the names of the registered tools.
	Available []string

	// Invocations are the calls already made this turn, in order.
	Invocations []domain.ToolInvocation
}

// invoked reports whether a tool has already been called this turn.
func (s PlanState) invoked(name string) bool {
	for _, inv := range s.Invocations {
		if inv.Name == name {
			return true
		}
	}
	return false
}

func (s PlanState) available(name string) bool {
	for _, n := range s.Available {
		if n == name {
			return true
		}
	}
	return false
}

// ToolPlanner decides which tools a turn calls before answering.
// The agent asks for the next call until the planner returns false or the
// per-turn limit is reached.
type ToolPlanner interface {
	Next(ctx context.Context, state PlanState) (ToolCall, bool)
}

// PlannerFunc adapts a function to ToolPlanner.
type PlannerFunc func(ctx context.Context, state PlanState) (ToolCall, bool)

// Next implements ToolPlanner.
func (f PlannerFunc) Next(ctx context.Context, state PlanState) (ToolCall, bool) {
	return f(ctx, state)
}

// NoTools is a planner that never calls a tool.
var NoTools ToolPlanner = PlannerFunc(func(context.Context, PlanState) (ToolCall, bool) {
	return ToolCall{}, false
})

// KeywordRule triggers a tool when the message matches its pattern.
type KeywordRule struct {
	Tool    string
	Pattern *regexp.Regexp
}

// DefaultKeywordRules trigger the built-in lookup tools.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{
			Tool:    "wikipedia",
			Pattern: regexp.MustCompile(`(?i)\b(wikipedia|wiki|encyclopedia|look\s+up)\b`),
		},
		{
			Tool:    "arxiv",
			Pattern: regexp.MustCompile(`(?i)\b(arxiv|papers?|preprints?|research|publications?)\b`),
		},
		{
			Tool:    "tavily",
			Pattern: regexp.MustCompile(`(?i)\b(web|internet|online|latest|news|search\s+the\s+web)\b`),
		},
	}
}

// KeywordPlanner calls each tool whose rule matches the message, once,
// in rule order.
type KeywordPlanner struct {
	rules []KeywordRule
}

// NewKeywordPlanner creates a planner. No rules means the default rules.
func NewKeywordPlanner(rules ...KeywordRule) *KeywordPlanner {
	if len(rules) == 0 {
		rules = DefaultKeywordRules()
	}
	return &KeywordPlanner{rules: rules}
}

// Next implements ToolPlanner.
func (p *KeywordPlanner) Next(_ context.Context, state PlanState) (ToolCall, bool) {
	for _, r := range p.rules {
		if !state.available(r.Tool) || state.invoked(r.Tool) {
			continue
		}
		if !r.Pattern.MatchString(state.Message) {
			continue
		}
		return ToolCall{
			Name:      r.Tool,
			Arguments: map[string]string{"query": lookupQuery(state.Message, r.Pattern)},
		}, true
	}
	return ToolCall{}, false
}

var (
	leadInPattern = regexp.MustCompile(`(?i)^(please\s+)?((can|could)\s+you\s+)?((search|find|check|tell\s+me)\s+)?((on|about|for|in)\s+)?`)
	fillerPattern = regexp.MustCompile(`(?i)\b(on|in|from|for|about|the)\s*$`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// lookupQuery strips trigger words from the message to form a tool query.
// The full message is used when nothing meaningful remains.
func lookupQuery(message string, trigger *regexp.Regexp) string {
	q := trigger.ReplaceAllString(message, " ")
	q = strings.Trim(spacePattern.ReplaceAllString(q, " "), " ?!.,")
	q = leadInPattern.ReplaceAllString(q, "")
	for {
		trimmed := strings.TrimSpace(fillerPattern.ReplaceAllString(q, ""))
		if trimmed == q {
			break
		}
		q = trimmed
	}
	if len([]rune(q)) < 3 {
		return strings.TrimSpace(message)
	}
	return q
}
