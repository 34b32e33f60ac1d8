package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nestling-app/nestling-api/internal/models"
)

// ChatRepository handles chat session and message database operations.
// Messages are append-only; there is no update or delete path.
type ChatRepository struct {
	db *DB
}

// NewChatRepository creates a new chat repository.
func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateSession inserts a new chat session.
func (r *ChatRepository) CreateSession(ctx context.Context, session *models.ChatSession) error {
	query := `
		INSERT INTO chat_sessions (id, profile_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		session.ID,
		session.ProfileID,
		time.Now(),
	).Scan(&session.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create chat session: %w", err)
	}

	return nil
}

// GetSession retrieves a chat session by ID.
func (r *ChatRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	session := &models.ChatSession{}

	query := `
		SELECT id, profile_id, created_at
		FROM chat_sessions
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.ProfileID,
		&session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}

	return session, nil
}

// AppendMessage inserts a message at the end of a session. The seq column is
// assigned by the database and breaks creation-time ties, so insertion order
// is the observable order.
func (r *ChatRepository) AppendMessage(ctx context.Context, message *models.Message) error {
	query := `
		INSERT INTO chat_messages (id, session_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		message.ID,
		message.SessionID,
		message.Role,
		message.Content,
		time.Now(),
	).Scan(&message.Seq, &message.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

// ListMessages retrieves every message of a session in conversation order:
// created_at ascending, seq ascending on ties.
func (r *ChatRepository) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*models.Message, error) {
	query := `
		SELECT id, session_id, seq, role, content, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		message := &models.Message{}

		err := rows.Scan(
			&message.ID,
			&message.SessionID,
			&message.Seq,
			&message.Role,
			&message.Content,
			&message.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}
