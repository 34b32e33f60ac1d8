package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatSession is one persisted conversation tied to a profile. Sessions have
// no terminal state; they remain appendable indefinitely.
type ChatSession struct {
	ID        uuid.UUID `json:"id"`
	ProfileID uuid.UUID `json:"profile_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one turn in a chat session. Messages are append-only and ordered
// by CreatedAt ascending; Seq breaks ties by insertion order.
type Message struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Seq       int64     `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
