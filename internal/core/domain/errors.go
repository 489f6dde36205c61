package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain failure.
type ErrorKind string

// Error kinds surfaced by the core.
const (
	// KindUnsupportedFormat means the extraction layer cannot parse the document type.
	KindUnsupportedFormat ErrorKind = "unsupported_format"

	// KindEmbeddingUnavailable means the embedding provider is unreachable or rate-limited.
	KindEmbeddingUnavailable ErrorKind = "embedding_unavailable"

	// KindDimensionMismatch means a vector does not match the index dimension.
	KindDimensionMismatch ErrorKind = "dimension_mismatch"

	// KindToolFailure means an auxiliary tool call failed.
	KindToolFailure ErrorKind = "tool_failure"

	// KindConversationEnded means the session is in its terminal state.
	KindConversationEnded ErrorKind = "conversation_ended"

	// KindLLMUnavailable means the language model could not produce a reply.
	KindLLMUnavailable ErrorKind = "llm_unavailable"

	// KindInvalidInput means malformed or invalid input.
	KindInvalidInput ErrorKind = "invalid_input"

	// KindNotFound means a requested entity does not exist.
	KindNotFound ErrorKind = "not_found"

	// KindInternal is used for errors that carry no domain kind.
	KindInternal ErrorKind = "internal"
)

// Error is a structured domain error.
// Two errors are equal under errors.Is when their kinds match, so callers
// can test against the sentinels below regardless of the message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError creates a structured error of the given kind.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Errorf creates a structured error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a domain error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first domain error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrUnsupportedFormat indicates no normaliser handles the document format.
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat, Message: "unsupported document format"}

	// ErrEmbeddingUnavailable indicates the embedding service is not reachable.
	// Ingestion retries it; live queries degrade.
	ErrEmbeddingUnavailable = &Error{Kind: KindEmbeddingUnavailable, Message: "embedding service unavailable"}

	// ErrDimensionMismatch indicates a vector of the wrong length for the index.
	ErrDimensionMismatch = &Error{Kind: KindDimensionMismatch, Message: "vector dimension mismatch"}

	// ErrToolFailure indicates a tool invocation failed.
	ErrToolFailure = &Error{Kind: KindToolFailure, Message: "tool failure"}

	// ErrConversationEnded indicates the conversation no longer accepts input.
	ErrConversationEnded = &Error{Kind: KindConversationEnded, Message: "conversation has ended"}

	// ErrLLMUnavailable indicates the LLM service is not configured or failed.
	ErrLLMUnavailable = &Error{Kind: KindLLMUnavailable, Message: "LLM service unavailable"}

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = &Error{Kind: KindInvalidInput, Message: "invalid input"}

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = &Error{Kind: KindNotFound, Message: "not found"}
)
