// Package insight produces one-shot feeding analyses: the profile's current
// state is aggregated, rendered into prompts and sent to a model backend as a
// stateless two-message exchange.
package insight

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nestling-app/nestling-api/internal/database"
	"github.com/nestling-app/nestling-api/internal/models"
	"github.com/nestling-app/nestling-api/internal/prompt"
	"github.com/nestling-app/nestling-api/internal/services/chat"
	"github.com/nestling-app/nestling-api/internal/services/llm"
	"github.com/nestling-app/nestling-api/internal/stats"
	"github.com/nestling-app/nestling-api/internal/timeutil"
	"go.uber.org/zap"
)

// Temperature used for analysis requests. Deterministic output is preferred
// over conversational variety here.
const Temperature = 0.0

// Result carries the model's analysis plus the exact prompts that produced
// it, so callers can display or log what the model saw.
type Result struct {
	Insights        string `json:"insights"`
	SystemContext   string `json:"system_context"`
	UserInstruction string `json:"user_instruction"`
}

// Service computes on-demand feeding insights.
type Service struct {
	profiles database.ProfileRepositoryInterface
	events   database.EventRepositoryInterface
	renderer *prompt.Renderer
	invoker  chat.Invoker
	logger   *zap.Logger
}

// NewService creates an insight service.
func NewService(profiles database.ProfileRepositoryInterface, events database.EventRepositoryInterface, renderer *prompt.Renderer, invoker chat.Invoker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		profiles: profiles,
		events:   events,
		renderer: renderer,
		invoker:  invoker,
		logger:   logger,
	}
}

// Compute renders the profile's feeding state into a system context and user
// instruction, invokes the selected backend at temperature 0, and returns the
// analysis. Nothing is persisted; each call re-reads the event log. The tz
// parameter falls back to the documented default zone when empty.
func (s *Service) Compute(ctx context.Context, profileID uuid.UUID, providerKey, tz string, now time.Time) (*Result, error) {
	if tz == "" {
		tz = timeutil.DefaultZone
	}
	if now.IsZero() {
		now = time.Now()
	}

	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	feedKind := models.EventKindFeed
	events, err := s.events.ListByProfile(ctx, profileID, &feedKind, 0)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	flat := make([]models.Event, len(events))
	for i, ev := range events {
		flat[i] = *ev
	}
	agg := stats.Aggregate(flat, now, tz)
	systemContext, userInstruction := s.renderer.Render(profile, agg, flat, tz, now)

	insights, err := s.invoker.Invoke(ctx, providerKey, []llm.Message{
		{Role: models.RoleSystem, Content: systemContext},
		{Role: models.RoleUser, Content: userInstruction},
	}, llm.SamplingConfig{
		Temperature: llm.Float64(Temperature),
	})
	if err != nil {
		s.logger.Warn("insight_computation_failed",
			zap.String("profile_id", profileID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	return &Result{
		Insights:        insights,
		SystemContext:   systemContext,
		UserInstruction: userInstruction,
	}, nil
}
