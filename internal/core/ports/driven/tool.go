package driven

import "context"

// Tool is an auxiliary capability the agent may call during a turn,
// such as an encyclopedia lookup.
type Tool interface {
	// Name is the identifier used in tool invocations.
	Name() string

	// Description tells planners what the tool is for.
	Description() string

	// Invoke runs the tool. Arguments are tool-specific; "query" is conventional.
	Invoke(ctx context.Context, args map[string]string) (string, error)
}
