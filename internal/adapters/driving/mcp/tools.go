package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"the question or phrase to find relevant passages for"`
	K          int    `json:"k,omitempty" jsonschema:"maximum number of passages to return (default from settings)"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"only search this document"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

// PassageOutput is a single retrieved passage.
type PassageOutput struct {
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source,omitempty"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question       string `json:"question" jsonschema:"the question to answer from the uploaded documents"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"continue an existing conversation"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Response          string   `json:"response"`
	ConversationID    string   `json:"conversation_id"`
	ToolsUsed         []string `json:"tools_used"`
	ConversationEnded bool     `json:"conversation_ended"`
	ContextUsed       int      `json:"context_used"`
	Degraded          bool     `json:"degraded"`
}

// StatusInput is the (empty) input schema for the status tool.
type StatusInput struct{}

// StatusOutput is the output schema for the status tool and resource.
type StatusOutput struct {
	Documents        int      `json:"documents"`
	ChunksCount      int      `json:"chunks_count"`
	Dimensions       int      `json:"dimensions"`
	ChatReady        bool     `json:"chat_ready"`
	SupportedFormats []string `json:"supported_formats"`
	EmbeddingModel   string   `json:"embedding_model,omitempty"`
	LLMModel         string   `json:"llm_model,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the passages of the uploaded documents most relevant to a query",
	}, s.handleSearch)

	if s.ports.Chat != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ask",
			Description: "Ask a question about the uploaded documents; answers may also use Wikipedia and arXiv",
		}, s.handleAsk)
	}

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "status",
			Description: "Report how many documents and chunks are indexed",
		}, s.handleStatus)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	filter := domain.SearchFilter{DocumentID: input.DocumentID}
	chunks, err := s.ports.Retrieval.Retrieve(ctx, input.Query, input.K, filter)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]PassageOutput, len(chunks)),
		Count:   len(chunks),
	}
	for i, c := range chunks {
		output.Results[i] = PassageOutput{
			DocumentID: c.DocumentID,
			Source:     c.Source,
			Text:       c.Text,
			Similarity: c.Similarity,
		}
	}

	return nil, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Chat == nil {
		return nil, AskOutput{}, errors.New("chat is not configured")
	}

	result, err := s.ports.Chat.Send(ctx, input.ConversationID, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	tools := result.ToolsUsed
	if tools == nil {
		tools = []string{}
	}
	return nil, AskOutput{
		Response:          result.Reply.Content,
		ConversationID:    result.SessionID,
		ToolsUsed:         tools,
		ConversationEnded: result.ConversationEnded,
		ContextUsed:       result.ContextUsed,
		Degraded:          result.Degraded,
	}, nil
}

// handleStatus handles the status tool invocation.
func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	out, err := s.status(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) status(ctx context.Context) (StatusOutput, error) {
	if s.ports.Ingest == nil {
		return StatusOutput{}, errors.New("ingest is not configured")
	}
	st, err := s.ports.Ingest.Status(ctx)
	if err != nil {
		return StatusOutput{}, err
	}

	formats := make([]string, len(st.SupportedFormats))
	for i, f := range st.SupportedFormats {
		formats[i] = f.String()
	}
	return StatusOutput{
		Documents:        st.DocumentsCount,
		ChunksCount:      st.ChunksCount,
		Dimensions:       st.Dimensions,
		ChatReady:        st.ChatReady && s.ports.Chat != nil,
		SupportedFormats: formats,
		EmbeddingModel:   st.EmbeddingModel,
		LLMModel:         st.LLMModel,
	}, nil
}
