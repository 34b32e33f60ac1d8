// Package chat implements persistent assistant conversations: session
// creation with a seeded greeting exchange, turn handling against the model
// backends, and history retrieval.
package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nestling-app/nestling-api/internal/database"
	"github.com/nestling-app/nestling-api/internal/models"
	"github.com/nestling-app/nestling-api/internal/prompt"
	"github.com/nestling-app/nestling-api/internal/services/llm"
	"github.com/nestling-app/nestling-api/internal/stats"
	"github.com/nestling-app/nestling-api/internal/timeutil"
	"go.uber.org/zap"
)

const (
	// UserGreeting is the canned opening user turn seeded into every new
	// session.
	UserGreeting = "Hi"
	// AssistantGreeting is the canned opening assistant turn. It is stored
	// directly; the model is not invoked during session creation.
	AssistantGreeting = "Hi there! How can I help you today?"

	// Temperature used for conversational turns.
	Temperature = 1.0
)

// Invoker sends a turn history to a model backend. *llm.Router satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, providerKey string, messages []llm.Message, cfg llm.SamplingConfig) (string, error)
}

// Engine owns chat session lifecycle and turn handling. Turns within one
// session are serialized; different sessions proceed concurrently.
type Engine struct {
	chats    database.ChatRepositoryInterface
	profiles database.ProfileRepositoryInterface
	events   database.EventRepositoryInterface
	renderer *prompt.Renderer
	invoker  Invoker
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewEngine creates a chat engine.
func NewEngine(chats database.ChatRepositoryInterface, profiles database.ProfileRepositoryInterface, events database.EventRepositoryInterface, renderer *prompt.Renderer, invoker Invoker, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		chats:    chats,
		profiles: profiles,
		events:   events,
		renderer: renderer,
		invoker:  invoker,
		logger:   logger,
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// sessionLock returns the mutex serializing turns for one session.
func (e *Engine) sessionLock(sessionID uuid.UUID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[sessionID] = l
	}
	return l
}

// CreateSession starts a conversation for a profile. The current profile and
// activity state is rendered into a system message, followed by a canned
// greeting exchange, all persisted without invoking a backend. The system
// snapshot is frozen at creation; later profile or event changes do not
// rewrite it. The tz parameter falls back to the documented default zone when
// empty, so the snapshot never renders a blank timezone.
func (e *Engine) CreateSession(ctx context.Context, profileID uuid.UUID, tz string, now time.Time) (*models.ChatSession, error) {
	if tz == "" {
		tz = timeutil.DefaultZone
	}

	profile, err := e.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	feedKind := models.EventKindFeed
	events, err := e.events.ListByProfile(ctx, profileID, &feedKind, 0)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	flat := make([]models.Event, len(events))
	for i, ev := range events {
		flat[i] = *ev
	}
	agg := stats.Aggregate(flat, now, tz)
	systemContext := e.renderer.RenderSystemContext(profile, agg, flat, tz, now)

	session := &models.ChatSession{
		ID:        uuid.New(),
		ProfileID: profileID,
	}
	if err := e.chats.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	seed := []struct {
		role    models.Role
		content string
	}{
		{models.RoleSystem, systemContext},
		{models.RoleUser, UserGreeting},
		{models.RoleAssistant, AssistantGreeting},
	}
	for _, m := range seed {
		msg := &models.Message{
			ID:        uuid.New(),
			SessionID: session.ID,
			Role:      m.role,
			Content:   m.content,
		}
		if err := e.chats.AppendMessage(ctx, msg); err != nil {
			return nil, fmt.Errorf("seed session: %w", err)
		}
	}

	e.logger.Info("chat_session_created",
		zap.String("session_id", session.ID.String()),
		zap.String("profile_id", profileID.String()),
	)

	return session, nil
}

// SendTurn appends the user's message, invokes the selected backend with the
// complete ordered history, and appends the assistant reply. On backend
// failure the user message stays persisted and no assistant message is
// written; retrying the turn re-sends the grown history. Turns in the same
// session are serialized.
func (e *Engine) SendTurn(ctx context.Context, sessionID uuid.UUID, providerKey, content string) (*models.Message, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session, err := e.chats.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	userMsg := &models.Message{
		ID:        uuid.New(),
		SessionID: session.ID,
		Role:      models.RoleUser,
		Content:   content,
	}
	if err := e.chats.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	history, err := e.chats.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	turns := make([]llm.Message, 0, len(history))
	for _, m := range history {
		turns = append(turns, llm.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := e.invoker.Invoke(ctx, providerKey, turns, llm.SamplingConfig{
		Temperature: llm.Float64(Temperature),
	})
	if err != nil {
		e.logger.Warn("chat_turn_failed",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	assistantMsg := &models.Message{
		ID:        uuid.New(),
		SessionID: session.ID,
		Role:      models.RoleAssistant,
		Content:   reply,
	}
	if err := e.chats.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}

	return assistantMsg, nil
}

// History returns a session's conversation in order, with system messages
// filtered out. Clients see only the user and assistant turns.
func (e *Engine) History(ctx context.Context, sessionID uuid.UUID) ([]*models.Message, error) {
	if _, err := e.chats.GetSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	messages, err := e.chats.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	visible := make([]*models.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			continue
		}
		visible = append(visible, m)
	}
	return visible, nil
}
