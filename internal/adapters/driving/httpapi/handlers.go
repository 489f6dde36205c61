package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Upload requests may name the format in this header instead of the query.
const formatHeader = "X-Document-Format"

// Reset scopes.
const (
	scopeSession = "session"
	scopeCorpus  = "corpus"
)

type uploadResponse struct {
	Message     string `json:"message"`
	DocumentID  string `json:"document_id"`
	Filename    string `json:"filename"`
	ChunksCount int    `json:"chunks_count"`
	Status      string `json:"status"`
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	Response          string   `json:"response"`
	ToolsUsed         []string `json:"tools_used"`
	ConversationEnded bool     `json:"conversation_ended"`
	ConversationID    string   `json:"conversation_id"`
	ContextUsed       int      `json:"context_used"`
	Degraded          bool     `json:"degraded"`
}

type statusResponse struct {
	Ready            bool     `json:"ready"`
	Documents        int      `json:"documents"`
	ChunksCount      int      `json:"chunks_count"`
	ChatReady        bool     `json:"chat_ready"`
	SupportedFormats []string `json:"supported_formats"`
	EmbeddingModel   string   `json:"embedding_model,omitempty"`
	LLMModel         string   `json:"llm_model,omitempty"`
	Dimensions       int      `json:"dimensions"`
}

type suggestionsResponse struct {
	Prompts []string `json:"prompts"`
}

type healthResponse struct {
	Status           string `json:"status"`
	AgentInitialized bool   `json:"agent_initialized"`
}

type resetRequest struct {
	ConversationID string `json:"conversation_id"`
	Scope          string `json:"scope"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "docchat API is running"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	raw, err := readUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.services.Ingest.Upload(r.Context(), raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Message:     "Document uploaded and processed successfully",
		DocumentID:  result.Document.ID,
		Filename:    result.Document.Filename,
		ChunksCount: result.ChunksCount,
		Status:      "ready",
	})
}

// readUpload reads a multipart "file" field or a raw request body.
// The format comes from the format query parameter or header, then the
// filename extension, then the content type.
func readUpload(r *http.Request) (*domain.RawDocument, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	raw := &domain.RawDocument{}
	contentType := mediaType
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if errors.Is(err, http.ErrMissingFile) {
			return nil, domain.NewError(domain.KindInvalidInput, "no file provided", nil)
		}
		if err != nil {
			return nil, uploadReadError(err)
		}
		defer func() { _ = file.Close() }()
		if header.Filename == "" {
			return nil, domain.NewError(domain.KindInvalidInput, "no file selected", nil)
		}
		raw.Filename = filepath.Base(header.Filename)
		contentType = header.Header.Get("Content-Type")
		if raw.Content, err = io.ReadAll(file); err != nil {
			return nil, uploadReadError(err)
		}
	} else {
		var err error
		if raw.Content, err = io.ReadAll(r.Body); err != nil {
			return nil, uploadReadError(err)
		}
		if name := r.URL.Query().Get("filename"); name != "" {
			raw.Filename = filepath.Base(name)
		}
	}
	if len(raw.Content) == 0 {
		return nil, domain.NewError(domain.KindInvalidInput, "no file provided", nil)
	}

	hint := r.URL.Query().Get("format")
	if hint == "" {
		hint = r.Header.Get(formatHeader)
	}
	switch {
	case hint != "":
		f, ok := domain.ParseFormat(hint)
		if !ok {
			return nil, domain.Errorf(domain.KindUnsupportedFormat, "unsupported format %q", hint)
		}
		raw.Format = f
	default:
		if _, ok := domain.FormatFromFilename(raw.Filename); !ok {
			if f, ok := domain.ParseFormat(contentType); ok {
				raw.Format = f
			}
		}
	}

	if raw.Filename == "" {
		raw.Filename = "upload"
		if raw.Format != "" {
			raw.Filename += "." + raw.Format.String()
		}
	}
	return raw, nil
}

func uploadReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return err
	}
	return domain.NewError(domain.KindInvalidInput, "read upload", err)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.services.Chat == nil {
		writeError(w, domain.Errorf(domain.KindLLMUnavailable, "chat is not configured"))
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewError(domain.KindInvalidInput, "invalid JSON body", err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, domain.NewError(domain.KindInvalidInput, "no message provided", nil))
		return
	}

	result, err := s.services.Chat.Send(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}

	tools := result.ToolsUsed
	if tools == nil {
		tools = []string{}
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Response:          result.Reply.Content,
		ToolsUsed:         tools,
		ConversationEnded: result.ConversationEnded,
		ConversationID:    result.SessionID,
		ContextUsed:       result.ContextUsed,
		Degraded:          result.Degraded,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.services.Ingest.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	formats := make([]string, len(status.SupportedFormats))
	for i, f := range status.SupportedFormats {
		formats[i] = strings.ToUpper(f.String())
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Ready:            status.ChunksCount > 0,
		Documents:        status.DocumentsCount,
		ChunksCount:      status.ChunksCount,
		ChatReady:        status.ChatReady && s.services.Chat != nil,
		SupportedFormats: formats,
		EmbeddingModel:   status.EmbeddingModel,
		LLMModel:         status.LLMModel,
		Dimensions:       status.Dimensions,
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	prompts := []string{}
	if s.services.Suggestions != nil {
		got, err := s.services.Suggestions.Suggestions(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		prompts = append(prompts, got...)
	}
	writeJSON(w, http.StatusOK, suggestionsResponse{Prompts: prompts})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "healthy",
		AgentInitialized: s.services.Chat != nil,
	})
}

// handleReset clears a conversation, or the whole corpus with scope=corpus.
// Parameters come from a JSON body or the query string.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	req := resetRequest{
		ConversationID: r.URL.Query().Get("conversation_id"),
		Scope:          r.URL.Query().Get("scope"),
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, domain.NewError(domain.KindInvalidInput, "invalid JSON body", err))
			return
		}
	}

	switch req.Scope {
	case scopeCorpus:
		if err := s.services.Ingest.Reset(r.Context()); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Corpus cleared"})
	case "", scopeSession:
		if req.ConversationID == "" {
			writeError(w, domain.NewError(domain.KindInvalidInput, "conversation_id is required", nil))
			return
		}
		if s.services.Chat == nil {
			writeError(w, domain.Errorf(domain.KindLLMUnavailable, "chat is not configured"))
			return
		}
		if err := s.services.Chat.Reset(r.Context(), req.ConversationID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{
			Message: fmt.Sprintf("Conversation %s reset", req.ConversationID),
		})
	default:
		writeError(w, domain.Errorf(domain.KindInvalidInput, "unknown reset scope %q", req.Scope))
	}
}
