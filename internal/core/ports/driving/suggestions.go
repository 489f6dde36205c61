package driving

import "context"

// SuggestionService offers example questions to start a conversation.
type SuggestionService interface {
	Suggestions(ctx context.Context) ([]string, error)
}
