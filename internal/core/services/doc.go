// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The write path is IngestService: normalise, chunk, embed, index.
// The read path is ChatService driving an Agent, which retrieves with a
// Retriever and builds prompts with a PromptAssembler.
package services
