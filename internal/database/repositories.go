package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/nestling-app/nestling-api/internal/models"
)

// EventRepositoryInterface defines the interface for event repository
// operations. The interface enables mock implementations in service tests.
type EventRepositoryInterface interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID, kind *models.EventKind, limit int) ([]*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// ProfileRepositoryInterface defines the interface for profile repository
// operations.
type ProfileRepositoryInterface interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
}

// ChatRepositoryInterface defines the interface for chat repository
// operations.
type ChatRepositoryInterface interface {
	CreateSession(ctx context.Context, session *models.ChatSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error)
	AppendMessage(ctx context.Context, message *models.Message) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*models.Message, error)
}

// Ensure concrete types implement the interfaces
var (
	_ EventRepositoryInterface   = (*EventRepository)(nil)
	_ ProfileRepositoryInterface = (*ProfileRepository)(nil)
	_ ChatRepositoryInterface    = (*ChatRepository)(nil)
)
