package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/nestling-app/nestling-api/internal/database"
	"github.com/nestling-app/nestling-api/internal/services/chat"
	"github.com/nestling-app/nestling-api/internal/services/llm"
	"github.com/nestling-app/nestling-api/internal/validation"
	"go.uber.org/zap"
)

// MaxChatMessageLength is the maximum length for one chat turn.
const MaxChatMessageLength = 10000

// ChatHandler handles chat session requests.
type ChatHandler struct {
	engine *chat.Engine
	logger *zap.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(engine *chat.Engine, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{engine: engine, logger: logger}
}

// RegisterProfileRoutes registers the session creation route. The router
// should already carry the /profiles prefix.
func (h *ChatHandler) RegisterProfileRoutes(r *mux.Router) {
	r.HandleFunc("/{profileID}/chats", h.CreateSession).Methods("POST")
}

// RegisterChatRoutes registers the per-session routes. The router should
// already carry the /chats prefix.
func (h *ChatHandler) RegisterChatRoutes(r *mux.Router) {
	r.HandleFunc("/{chatID}/messages", h.SendMessage).Methods("POST")
	r.HandleFunc("/{chatID}/messages", h.ListMessages).Methods("GET")
}

// CreateSessionRequest represents a chat session creation request.
type CreateSessionRequest struct {
	Timezone string `json:"timezone,omitempty" validate:"iana_timezone"`
}

// SendMessageRequest represents one user chat turn.
type SendMessageRequest struct {
	Provider string `json:"provider,omitempty" validate:"provider_key"`
	Message  string `json:"message" validate:"required,min=1,max=10000"`
}

// CreateSession starts a conversation seeded with the profile's current
// state and a greeting exchange.
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	profileID, err := uuid.Parse(mux.Vars(r)["profileID"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid profile ID")
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	session, err := h.engine.CreateSession(r.Context(), profileID, req.Timezone, time.Now())
	if errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Profile not found")
		return
	}
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create chat session")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"chat_id": session.ID})
}

// SendMessage appends a user turn and returns the assistant reply.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(mux.Vars(r)["chatID"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid chat ID")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	reply, err := h.engine.SendTurn(r.Context(), chatID, req.Provider, validation.SanitizeText(req.Message))
	if errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Chat session not found")
		return
	}
	if llm.IsInvocationError(err) {
		h.logger.Warn("chat_backend_failure", zap.Error(err))
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Model backend failed")
		return
	}
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to send message")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"reply": reply.Content})
}

// ListMessages returns the visible conversation history, oldest first.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(mux.Vars(r)["chatID"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid chat ID")
		return
	}

	messages, err := h.engine.History(r.Context(), chatID)
	if errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Chat session not found")
		return
	}
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve messages")
		return
	}

	respondJSON(w, http.StatusOK, messages)
}
