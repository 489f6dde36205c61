// Package domain defines the core business entities for docchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: extracted text of an uploaded file
//   - Chunk: a positional slice of a document used for retrieval
//   - IndexEntry: a chunk paired with its embedding vector
//   - Message: one of UserMessage, AssistantMessage or ToolMessage
//   - ConversationState: the per-session message log and status
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
