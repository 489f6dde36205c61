package domain

import "time"

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a conversation. It is one of UserMessage,
// AssistantMessage or ToolMessage; switch on the concrete type.
type Message interface {
	Role() Role
	Text() string
	Time() time.Time
	message()
}

// UserMessage is input from the person chatting.
type UserMessage struct {
	Content string
	At      time.Time
}

// AssistantMessage is a reply produced by the agent.
type AssistantMessage struct {
	Content string

	// ToolInvocations lists the tool calls made while producing this reply,
	// in invocation order.
	ToolInvocations []ToolInvocation

	At time.Time
}

// ToolMessage carries the output of a single tool call.
type ToolMessage struct {
	Invocation ToolInvocation
	At         time.Time
}

func (UserMessage) message()      {}
func (AssistantMessage) message() {}
func (ToolMessage) message()      {}

// Role implements Message.
func (UserMessage) Role() Role { return RoleUser }

// Role implements Message.
func (AssistantMessage) Role() Role { return RoleAssistant }

// Role implements Message.
func (ToolMessage) Role() Role { return RoleTool }

// Text implements Message.
func (m UserMessage) Text() string { return m.Content }

// Text implements Message.
func (m AssistantMessage) Text() string { return m.Content }

// Text implements Message. Failed invocations report their error.
func (m ToolMessage) Text() string {
	if !m.Invocation.Success {
		return "error: " + m.Invocation.Error
	}
	return m.Invocation.Output
}

// Time implements Message.
func (m UserMessage) Time() time.Time { return m.At }

// Time implements Message.
func (m AssistantMessage) Time() time.Time { return m.At }

// Time implements Message.
func (m ToolMessage) Time() time.Time { return m.At }

// ToolNames returns the names of the invoked tools in invocation order.
func (m AssistantMessage) ToolNames() []string {
	names := make([]string, len(m.ToolInvocations))
	for i, inv := range m.ToolInvocations {
		names[i] = inv.Name
	}
	return names
}

// ToolInvocation records one tool call made during a turn.
type ToolInvocation struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
	Output    string            `json:"output,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Duration  time.Duration     `json:"duration"`
}
