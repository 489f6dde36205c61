package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// fallbackDegradedReply is used when no prompt store is configured.
const fallbackDegradedReply = "I cannot search the documents right now, so I can't give you a grounded answer. " +
	"Please try again in a moment."

// farewellReply replaces a reply that was nothing but the closing marker.
const farewellReply = "Goodbye!"

// ConversationAgent advances a conversation by one user message.
type ConversationAgent interface {
	Turn(ctx context.Context, state *domain.ConversationState, message string) (*domain.TurnResult, error)
}

// Ensure Agent implements the interface.
var _ ConversationAgent = (*Agent)(nil)

// Agent is the conversation state machine.
//
// A turn on an ACTIVE conversation runs the planned tool calls, retrieves
// context, asks the model for a reply and checks whether the exchange ends
// the conversation. Nothing is appended to the conversation unless the turn
// completes. A turn on an ENDED conversation fails with
// domain.ErrConversationEnded.
type Agent struct {
	retriever driving.RetrievalService
	assembler *PromptAssembler
	llm       driven.LLMService
	prompts   driven.PromptStore

	tools     map[string]driven.Tool
	toolNames []string

	planner    ToolPlanner
	terminates TerminationPredicate

	maxToolCalls  int
	toolTimeout   time.Duration
	modelTimeout  time.Duration
	closingMarker string
	topK          int
	chatOpts      driven.ChatOptions

	now func() time.Time
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithPlanner replaces the keyword planner.
func WithPlanner(p ToolPlanner) AgentOption {
	return func(a *Agent) {
		if p != nil {
			a.planner = p
		}
	}
}

// WithTermination replaces the default termination predicate.
func WithTermination(p TerminationPredicate) AgentOption {
	return func(a *Agent) {
		if p != nil {
			a.terminates = p
		}
	}
}

// WithPromptStore sets the store used for the degraded reply.
func WithPromptStore(s driven.PromptStore) AgentOption {
	return func(a *Agent) {
		a.prompts = s
	}
}

// WithChatOptions sets the options passed to the model on every turn.
func WithChatOptions(opts driven.ChatOptions) AgentOption {
	return func(a *Agent) {
		a.chatOpts = opts
	}
}

// WithTopK sets the number of chunks retrieved per turn.
func WithTopK(k int) AgentOption {
	return func(a *Agent) {
		a.topK = k
	}
}

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) AgentOption {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAgent creates an agent. The llm may be nil, in which case every
// non-degraded turn fails with domain.ErrLLMUnavailable.
func NewAgent(
	retriever driving.RetrievalService,
	assembler *PromptAssembler,
	llm driven.LLMService,
	tools []driven.Tool,
	settings domain.AgentSettings,
	opts ...AgentOption,
) *Agent {
	marker := settings.ClosingMarker
	if marker == "" {
		marker = domain.DefaultClosingMarker
	}
	maxCalls := settings.MaxToolCalls
	if maxCalls < 0 {
		maxCalls = 0
	}

	a := &Agent{
		retriever:     retriever,
		assembler:     assembler,
		llm:           llm,
		tools:         make(map[string]driven.Tool, len(tools)),
		planner:       NewKeywordPlanner(),
		terminates:    DefaultTermination(marker),
		maxToolCalls:  maxCalls,
		toolTimeout:   settings.ToolTimeout,
		modelTimeout:  settings.ModelTimeout,
		closingMarker: marker,
		now:           time.Now,
	}
	for _, t := range tools {
		if t == nil {
			continue
		}
		if _, dup := a.tools[t.Name()]; dup {
			continue
		}
		a.tools[t.Name()] = t
		a.toolNames = append(a.toolNames, t.Name())
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.prompts == nil && assembler != nil {
		a.prompts = assembler.prompts
	}
	return a
}

// Tools returns the names of the registered tools.
func (a *Agent) Tools() []string {
	return append([]string(nil), a.toolNames...)
}

// Turn runs one turn of the conversation.
func (a *Agent) Turn(
	ctx context.Context, state *domain.ConversationState, message string,
) (*domain.TurnResult, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: conversation is nil", domain.ErrInvalidInput)
	}
	if state.Ended() {
		return nil, domain.Errorf(domain.KindConversationEnded,
			"conversation %s has ended, reset it to start again", state.SessionID)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}

	logger.Section("Conversation Turn")
	logger.Debug("Session %s, %d messages so far", state.SessionID, len(state.Messages))
	userAt := a.now()

	invocations := a.runTools(ctx, message)

	var (
		reply       string
		contextUsed int
		degraded    bool
	)
	chunks, err := a.retriever.Retrieve(ctx, message, a.topK, domain.SearchFilter{})
	switch {
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		logger.Warn("Documents cannot be searched: %v", err)
		degraded = true
		if !anySucceeded(invocations) {
			reply = a.degradedReply()
			break
		}
		reply, _, err = a.answer(ctx, state, message, nil, invocations)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("retrieve context: %w", err)
	default:
		reply, contextUsed, err = a.answer(ctx, state, message, chunks, invocations)
		if err != nil {
			return nil, err
		}
	}

	ended := a.terminates(Exchange{UserMessage: message, Reply: reply, Invocations: invocations})
	reply = a.stripMarker(reply)
	if reply == "" && ended {
		reply = farewellReply
	}

	assistant := domain.AssistantMessage{
		Content:         reply,
		ToolInvocations: invocations,
		At:              a.now(),
	}
	state.Append(domain.UserMessage{Content: message, At: userAt}, assistant)
	state.ToolsThisTurn = assistant.ToolNames()
	if ended {
		logger.Info("Conversation %s ended", state.SessionID)
		state.End()
	}

	return &domain.TurnResult{
		Reply:             assistant,
		ToolsUsed:         state.ToolsThisTurn,
		ConversationEnded: ended,
		ContextUsed:       contextUsed,
		Degraded:          degraded,
	}, nil
}

// runTools executes planned tool calls in order, at most maxToolCalls.
// Failures are recorded and do not stop the turn.
func (a *Agent) runTools(ctx context.Context, message string) []domain.ToolInvocation {
	if len(a.tools) == 0 || a.planner == nil {
		return nil
	}

	var invocations []domain.ToolInvocation
	for {
		call, ok := a.planner.Next(ctx, PlanState{
			Message:     message,
			Available:   a.toolNames,
			Invocations: invocations,
		})
		if !ok {
			break
		}
		if len(invocations) >= a.maxToolCalls {
			logger.Warn("Tool call limit of %d reached, answering with the results gathered", a.maxToolCalls)
			break
		}
		invocations = append(invocations, a.invoke(ctx, call))
	}
	return invocations
}

// invoke runs a single tool call within the tool timeout.
func (a *Agent) invoke(ctx context.Context, call ToolCall) domain.ToolInvocation {
	inv := domain.ToolInvocation{Name: call.Name, Arguments: call.Arguments}

	tool, ok := a.tools[call.Name]
	if !ok {
		inv.Error = fmt.Sprintf("unknown tool %q", call.Name)
		logger.Warn("Planner requested %s", inv.Error)
		return inv
	}

	if a.toolTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.toolTimeout)
		defer cancel()
	}

	logger.Debug("Invoking tool %s with %v", call.Name, call.Arguments)
	start := time.Now()
	out, err := tool.Invoke(ctx, call.Arguments)
	inv.Duration = time.Since(start)
	if err != nil {
		inv.Error = err.Error()
		logger.Warn("Tool %s failed after %s: %v", call.Name, inv.Duration, err)
		return inv
	}
	inv.Output = out
	inv.Success = true
	logger.Debug("Tool %s returned %d bytes in %s", call.Name, len(out), inv.Duration)
	return inv
}

// answer assembles the prompt and asks the model for a reply.
func (a *Agent) answer(
	ctx context.Context,
	state *domain.ConversationState,
	message string,
	chunks []domain.RetrievedChunk,
	invocations []domain.ToolInvocation,
) (string, int, error) {
	var toolResults []domain.ToolInvocation
	for _, inv := range invocations {
		if inv.Success {
			toolResults = append(toolResults, inv)
		}
	}

	prompt, err := a.assembler.Assemble(AssembleInput{
		Chunks:      chunks,
		History:     state.Messages,
		ToolResults: toolResults,
		Question:    message,
	})
	if err != nil {
		return "", 0, fmt.Errorf("assemble prompt: %w", err)
	}

	if a.llm == nil {
		return "", 0, domain.NewError(domain.KindLLMUnavailable, "no language model configured", nil)
	}
	if a.modelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.modelTimeout)
		defer cancel()
	}

	logger.Debug("Asking %s with %d context chunks and %d tool results",
		a.llm.ModelName(), len(prompt.Included), len(toolResults))
	reply, err := a.llm.Chat(ctx, prompt.Messages(), a.chatOpts)
	if err != nil {
		if errors.Is(err, domain.ErrLLMUnavailable) {
			return "", 0, err
		}
		return "", 0, domain.NewError(domain.KindLLMUnavailable, "generate reply", err)
	}
	return strings.TrimSpace(reply), len(prompt.Included), nil
}

func (a *Agent) degradedReply() string {
	if a.prompts == nil {
		return fallbackDegradedReply
	}
	reply, err := a.prompts.Load(driven.PromptDegraded)
	if err != nil || strings.TrimSpace(reply) == "" {
		return fallbackDegradedReply
	}
	return strings.TrimSpace(reply)
}

func anySucceeded(invocations []domain.ToolInvocation) bool {
	for _, inv := range invocations {
		if inv.Success {
			return true
		}
	}
	return false
}

// stripMarker removes the closing marker from a reply.
func (a *Agent) stripMarker(reply string) string {
	return strings.TrimSpace(strings.ReplaceAll(reply, a.closingMarker, ""))
}
