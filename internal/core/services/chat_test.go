package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// echoAgent replies with the message and ends on "bye".
type echoAgent struct {
	mu    sync.Mutex
	turns int
	err   error
}

func (e *echoAgent) Turn(_ context.Context, state *domain.ConversationState, message string) (*domain.TurnResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if state.Ended() {
		return nil, domain.ErrConversationEnded
	}
	if e.err != nil {
		return nil, e.err
	}
	e.turns++
	reply := domain.AssistantMessage{Content: "echo: " + message}
	state.Append(domain.UserMessage{Content: message}, reply)
	ended := message == "bye"
	if ended {
		state.End()
	}
	return &domain.TurnResult{Reply: reply, ConversationEnded: ended}, nil
}

func TestChatService_SendStartsSession(t *testing.T) {
	svc := NewChatService(&echoAgent{}, nil)

	result, err := svc.Send(context.Background(), "", "hello")

	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, "echo: hello", result.Reply.Content)
	assert.Equal(t, []string{result.SessionID}, svc.Sessions())
}

func TestChatService_SessionsAreIndependent(t *testing.T) {
	svc := NewChatService(&echoAgent{}, nil)
	ctx := context.Background()

	_, err := svc.Send(ctx, "a", "one")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "a", "two")
	require.NoError(t, err)
	_, err = svc.Send(ctx, "b", "three")
	require.NoError(t, err)

	a, err := svc.State(ctx, "a")
	require.NoError(t, err)
	b, err := svc.State(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, a.Messages, 4)
	assert.Len(t, b.Messages, 2)
}

func TestChatService_StateIsACopy(t *testing.T) {
	svc := NewChatService(&echoAgent{}, nil)
	ctx := context.Background()
	_, err := svc.Send(ctx, "a", "one")
	require.NoError(t, err)

	state, err := svc.State(ctx, "a")
	require.NoError(t, err)
	state.Messages = nil

	again, err := svc.State(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, again.Messages, 2)
}

func TestChatService_UnknownSession(t *testing.T) {
	svc := NewChatService(&echoAgent{}, newMockTranscriptStore())

	_, err := svc.State(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatService_PersistsAndRestores(t *testing.T) {
	store := newMockTranscriptStore()
	ctx := context.Background()

	first := NewChatService(&echoAgent{}, store)
	_, err := first.Send(ctx, "s1", "remember this")
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)

	second := NewChatService(&echoAgent{}, store)
	state, err := second.State(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "remember this", state.Messages[0].Text())

	_, err = second.Send(ctx, "s1", "and this")
	require.NoError(t, err)
	state, err = second.State(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, state.Messages, 4)
}

func TestChatService_EndedSessionStaysEnded(t *testing.T) {
	store := newMockTranscriptStore()
	ctx := context.Background()

	first := NewChatService(&echoAgent{}, store)
	result, err := first.Send(ctx, "s1", "bye")
	require.NoError(t, err)
	assert.True(t, result.ConversationEnded)

	second := NewChatService(&echoAgent{}, store)
	_, err = second.Send(ctx, "s1", "hello again")
	assert.ErrorIs(t, err, domain.ErrConversationEnded)
}

func TestChatService_ResetStartsFresh(t *testing.T) {
	store := newMockTranscriptStore()
	svc := NewChatService(&echoAgent{}, store)
	ctx := context.Background()

	_, err := svc.Send(ctx, "s1", "bye")
	require.NoError(t, err)
	require.NoError(t, svc.Reset(ctx, "s1"))

	_, err = svc.State(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	result, err := svc.Send(ctx, "s1", "hello")
	require.NoError(t, err)
	assert.False(t, result.ConversationEnded)

	state, err := svc.State(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, state.Messages, 2)
}

func TestChatService_ResetUnknownSession(t *testing.T) {
	svc := NewChatService(&echoAgent{}, newMockTranscriptStore())

	assert.NoError(t, svc.Reset(context.Background(), "never-seen"))
}

func TestChatService_TurnErrorIsNotPersisted(t *testing.T) {
	store := newMockTranscriptStore()
	svc := NewChatService(&echoAgent{err: domain.ErrLLMUnavailable}, store)

	_, err := svc.Send(context.Background(), "s1", "hello")

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Zero(t, store.saves)
}

func TestChatService_SaveFailureDoesNotFailTurn(t *testing.T) {
	store := newMockTranscriptStore()
	store.saveErr = errors.New("disk full")
	svc := NewChatService(&echoAgent{}, store)

	result, err := svc.Send(context.Background(), "s1", "hello")

	require.NoError(t, err)
	assert.Equal(t, "echo: hello", result.Reply.Content)
}

func TestChatService_ConcurrentSendsOnOneSession(t *testing.T) {
	agent := &echoAgent{}
	svc := NewChatService(agent, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Send(ctx, "shared", "hi")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := svc.State(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, state.Messages, 40)
	assert.Equal(t, 20, agent.turns)
}

// gatedAgent blocks its first turn until release is closed.
type gatedAgent struct {
	echoAgent
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedAgent) Turn(ctx context.Context, state *domain.ConversationState, message string) (*domain.TurnResult, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.echoAgent.Turn(ctx, state, message)
}

func TestChatService_StaleSessionIsNotReused(t *testing.T) {
	store := newMockTranscriptStore()
	svc := NewChatService(&echoAgent{}, store)
	ctx := context.Background()

	_, err := svc.Send(ctx, "s1", "before reset")
	require.NoError(t, err)
	stale := svc.session("s1")

	require.NoError(t, svc.Reset(ctx, "s1"))
	assert.True(t, stale.dead)

	live := svc.acquire("s1")
	assert.NotSame(t, stale, live)
	live.mu.Unlock()

	_, err = svc.Send(ctx, "s1", "after reset")
	require.NoError(t, err)
	rec, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	state, err := rec.State()
	require.NoError(t, err)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "after reset", state.Messages[0].Text())
}

func TestChatService_ResetDuringTurnDropsOldTranscript(t *testing.T) {
	store := newMockTranscriptStore()
	agent := &gatedAgent{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewChatService(agent, store)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		_, err := svc.Send(ctx, "s1", "first")
		assert.NoError(t, err)
	}()
	<-agent.entered
	go func() {
		defer wg.Done()
		_, err := svc.Send(ctx, "s1", "second")
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, svc.Reset(ctx, "s1"))
	}()
	time.Sleep(20 * time.Millisecond)
	close(agent.release)
	wg.Wait()

	rec, err := store.Get(ctx, "s1")
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	require.NoError(t, err)
	state, err := rec.State()
	require.NoError(t, err)
	for _, m := range state.Messages {
		assert.NotEqual(t, "first", m.Text(), "transcript from before the reset came back")
	}
}
