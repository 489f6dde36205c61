package services

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// closingMarkerPlaceholder is substituted in the system prompt template.
const closingMarkerPlaceholder = "{closing_marker}"

// fallbackSystemPrompt is used when no prompt store is configured.
const fallbackSystemPrompt = "Answer the question using ONLY the context provided. " +
	"If the context does not contain the answer, say that you don't have enough information " +
	"in the provided documents. When the user says the conversation is over, end your reply with " +
	closingMarkerPlaceholder + "."

// noContextNotice stands in for the context section when no chunk fits.
const noContextNotice = "(no relevant passages were found in the uploaded documents)"

// AssembleInput is everything that goes into one grounded prompt.
type AssembleInput struct {
	// Chunks are the retrieved passages in retrieval order.
	Chunks []domain.RetrievedChunk

	// History is the conversation so far, oldest first.
	History []domain.Message

	// ToolResults are the successful tool calls of this turn.
	ToolResults []domain.ToolInvocation

	Question string
}

// Prompt is an assembled grounded prompt.
type Prompt struct {
	// System is the instruction restricting answers to the context.
	System string

	// Body holds the context, tool results, history and question.
	Body string

	// Included are the chunks present in Body, in retrieval order.
	Included []domain.RetrievedChunk

	// Dropped are the chunks removed to respect the budget.
	Dropped []domain.RetrievedChunk
}

// Text returns the prompt as a single block.
func (p *Prompt) Text() string {
	return p.System + "\n\n" + p.Body
}

// Messages returns the prompt as chat messages for an LLM.
func (p *Prompt) Messages() []driven.ChatMessage {
	return []driven.ChatMessage{
		{Role: driven.ChatRoleSystem, Content: p.System},
		{Role: driven.ChatRoleUser, Content: p.Body},
	}
}

// PromptAssembler builds grounded prompts within a character budget.
//
// When the prompt would exceed the budget, retrieved chunks are dropped
// starting from the lowest similarity. Among equally similar chunks the
// later one in retrieval order goes first. If the prompt is still too long
// with no chunks left, the oldest history messages are dropped. The system
// instruction and the question are never cut.
type PromptAssembler struct {
	prompts       driven.PromptStore
	maxChars      int
	historyWindow int
	closingMarker string
}

// NewPromptAssembler creates an assembler. The prompt store may be nil.
func NewPromptAssembler(
	prompts driven.PromptStore, settings domain.PromptSettings, closingMarker string,
) *PromptAssembler {
	maxChars := settings.MaxChars
	if maxChars <= 0 {
		maxChars = domain.DefaultPromptMaxChars
	}
	window := settings.HistoryWindow
	if window < 0 {
		window = 0
	}
	return &PromptAssembler{
		prompts:       prompts,
		maxChars:      maxChars,
		historyWindow: window,
		closingMarker: closingMarker,
	}
}

// Assemble builds the prompt for one question.
func (a *PromptAssembler) Assemble(in AssembleInput) (*Prompt, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	system := strings.ReplaceAll(a.systemTemplate(), closingMarkerPlaceholder, a.closingMarker)
	history := windowHistory(in.History, a.historyWindow)
	blocks := make([]string, len(in.Chunks))
	for i, c := range in.Chunks {
		blocks[i] = chunkBlock(i+1, c)
	}

	keep := make([]bool, len(in.Chunks))
	for i := range keep {
		keep[i] = true
	}

	render := func() string {
		return renderBody(blocks, keep, in.ToolResults, history, question)
	}
	fits := func(body string) bool {
		return utf8.RuneCountInString(system)+2+utf8.RuneCountInString(body) <= a.maxChars
	}

	body := render()
	for _, i := range dropOrder(in.Chunks) {
		if fits(body) {
			break
		}
		keep[i] = false
		body = render()
	}
	for len(history) > 0 && !fits(body) {
		history = history[1:]
		body = render()
	}

	p := &Prompt{System: system, Body: body}
	for i, c := range in.Chunks {
		if keep[i] {
			p.Included = append(p.Included, c)
		} else {
			p.Dropped = append(p.Dropped, c)
		}
	}
	if len(p.Dropped) > 0 {
		logger.Debug("Prompt budget %d chars: dropped %d of %d chunks", a.maxChars, len(p.Dropped), len(in.Chunks))
	}
	if !fits(body) {
		logger.Warn("Prompt exceeds budget of %d chars with all optional content removed", a.maxChars)
	}
	return p, nil
}

func (a *PromptAssembler) systemTemplate() string {
	if a.prompts == nil {
		return fallbackSystemPrompt
	}
	tmpl, err := a.prompts.Load(driven.PromptRAGSystem)
	if err != nil || strings.TrimSpace(tmpl) == "" {
		logger.Warn("Loading system prompt: %v, using built-in prompt", err)
		return fallbackSystemPrompt
	}
	return tmpl
}

// dropOrder returns chunk indices in the order they are dropped:
// lowest similarity first, later retrieval position first on ties.
func dropOrder(chunks []domain.RetrievedChunk) []int {
	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		a, b := chunks[order[x]], chunks[order[y]]
		if a.Similarity != b.Similarity {
			return a.Similarity < b.Similarity
		}
		return order[x] > order[y]
	})
	return order
}

// windowHistory keeps the last n user and assistant messages.
func windowHistory(msgs []domain.Message, n int) []domain.Message {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role() != domain.RoleTool {
			out = append(out, m)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func chunkBlock(n int, c domain.RetrievedChunk) string {
	if c.Source == "" {
		return fmt.Sprintf("[%d]\n%s", n, c.Text)
	}
	return fmt.Sprintf("[%d] (source: %s)\n%s", n, c.Source, c.Text)
}

func renderBody(
	blocks []string, keep []bool, tools []domain.ToolInvocation, history []domain.Message, question string,
) string {
	var b strings.Builder

	b.WriteString("Context:\n")
	wrote := false
	for i, block := range blocks {
		if !keep[i] {
			continue
		}
		if wrote {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
		wrote = true
	}
	if !wrote {
		b.WriteString(noContextNotice)
	}

	if len(tools) > 0 {
		b.WriteString("\n\nTool results:\n")
		for i, inv := range tools {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "[%s]\n%s", inv.Name, inv.Output)
		}
	}

	if len(history) > 0 {
		b.WriteString("\n\nConversation so far:\n")
		for _, m := range history {
			label := "User"
			if m.Role() == domain.RoleAssistant {
				label = "Assistant"
			}
			fmt.Fprintf(&b, "%s: %s\n", label, m.Text())
		}
	} else {
		b.WriteString("\n")
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
