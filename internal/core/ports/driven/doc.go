// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser / NormaliserRegistry: extract text from uploaded files
//   - EmbeddingService: maps text to vectors
//   - VectorIndex: stores vectors and answers k-nearest-neighbour queries
//   - LLMService: produces assistant replies
//   - ConfigStore: application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - IndexSnapshotStore: persists the index between runs. Without it the corpus lives in memory.
//   - TranscriptStore: persists conversations. Without it sessions end with the process.
//   - Tool: auxiliary lookups. Without tools the agent answers from documents only.
//   - PromptStore: user-editable prompts. Without it embedded defaults are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
