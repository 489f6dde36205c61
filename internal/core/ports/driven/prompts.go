package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptRAGSystem is the system instruction restricting answers to the
	// supplied context. The placeholder {closing_marker} is substituted.
	PromptRAGSystem = "rag_system"

	// PromptDegraded is the reply given when documents cannot be searched.
	PromptDegraded = "degraded_reply"
)
