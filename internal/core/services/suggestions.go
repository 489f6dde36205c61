package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure SuggestionService implements the interface.
var _ driving.SuggestionService = (*SuggestionService)(nil)

// DefaultSuggestions are offered when no suggestions file is configured.
var DefaultSuggestions = []string{
	"What are the latest trends in AI?",
	"Explain how machine learning works",
	"What is the difference between supervised and unsupervised learning?",
	"Tell me about neural networks",
	"What are the applications of deep learning?",
	"How does natural language processing work?",
	"What is computer vision?",
	"Explain reinforcement learning",
	"What are the challenges in AI?",
	"How can I get started with AI development?",
}

// maxCorpusSuggestions bounds how many documents get their own questions.
const maxCorpusSuggestions = 3

// DocumentLister lists the ingested documents.
type DocumentLister interface {
	Documents(ctx context.Context) ([]domain.Document, error)
}

// suggestionsFile is the YAML layout of a suggestions file.
type suggestionsFile struct {
	Prompts []string `yaml:"prompts"`
}

// SuggestionService offers example questions: a few about the most
// recently uploaded documents, followed by a static list.
type SuggestionService struct {
	docs   DocumentLister
	static []string
}

// NewSuggestionService creates a suggestion service.
// The document lister is optional (can be nil).
func NewSuggestionService(docs DocumentLister, static []string) *SuggestionService {
	if len(static) == 0 {
		static = DefaultSuggestions
	}
	return &SuggestionService{docs: docs, static: static}
}

// LoadSuggestions reads the prompts list of a YAML suggestions file.
func LoadSuggestions(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suggestions: %w", err)
	}
	var f suggestionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse suggestions %s: %w", domain.ErrInvalidInput, path, err)
	}

	prompts := make([]string, 0, len(f.Prompts))
	for _, p := range f.Prompts {
		if p = strings.TrimSpace(p); p != "" {
			prompts = append(prompts, p)
		}
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("%w: %s lists no prompts", domain.ErrInvalidInput, path)
	}
	return prompts, nil
}

// Suggestions returns example questions.
func (s *SuggestionService) Suggestions(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(s.static)+2*maxCorpusSuggestions)
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	if s.docs != nil {
		docs, err := s.docs.Documents(ctx)
		if err != nil {
			logger.Warn("Listing documents for suggestions: %v", err)
		}
		for i := len(docs) - 1; i >= 0 && len(docs)-i <= maxCorpusSuggestions; i-- {
			name := docs[i].Title
			if name == "" {
				name = docs[i].Filename
			}
			add(fmt.Sprintf("Summarise the key points of %s", name))
			add(fmt.Sprintf("What are the main conclusions in %s?", name))
		}
	}
	for _, p := range s.static {
		add(p)
	}
	return out, nil
}
