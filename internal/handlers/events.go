package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/nestling-app/nestling-api/internal/database"
	"github.com/nestling-app/nestling-api/internal/models"
	"github.com/nestling-app/nestling-api/internal/request"
	"github.com/nestling-app/nestling-api/internal/timeutil"
	"github.com/nestling-app/nestling-api/internal/validation"
)

const (
	// MaxNoteLength is the maximum length for event notes.
	MaxNoteLength = 2000
)

// EventHandler handles care event requests.
type EventHandler struct {
	events database.EventRepositoryInterface
}

// NewEventHandler creates a new event handler.
func NewEventHandler(events database.EventRepositoryInterface) *EventHandler {
	return &EventHandler{events: events}
}

// RegisterProfileRoutes registers the per-profile event routes. The router
// should already carry the /profiles prefix.
func (h *EventHandler) RegisterProfileRoutes(r *mux.Router) {
	r.HandleFunc("/{profileID}/events", h.ListEvents).Methods("GET")
	r.HandleFunc("/{profileID}/events", h.CreateEvent).Methods("POST")
}

// RegisterEventRoutes registers the per-event routes. The router should
// already carry the /events prefix.
func (h *EventHandler) RegisterEventRoutes(r *mux.Router) {
	r.HandleFunc("/{eventID}", h.UpdateEvent).Methods("PATCH")
	r.HandleFunc("/{eventID}", h.DeleteEvent).Methods("DELETE")
}

// CreateEventRequest represents a create event request. OccurredAt is a
// canonical local-time string interpreted in the caller's timezone.
type CreateEventRequest struct {
	Kind       string  `json:"kind" validate:"required,event_kind"`
	Quantity   float64 `json:"quantity" validate:"gte=0"`
	OccurredAt string  `json:"occurred_at" validate:"required"`
	Note       string  `json:"note,omitempty" validate:"max=2000"`
}

// UpdateEventRequest represents an event update. The occurrence time is
// immutable and deliberately absent.
type UpdateEventRequest struct {
	Kind     *string  `json:"kind,omitempty" validate:"omitempty,event_kind"`
	Quantity *float64 `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	Note     *string  `json:"note,omitempty" validate:"omitempty,max=2000"`
}

// EventResponse augments an event with its occurrence time rendered in the
// caller's timezone.
type EventResponse struct {
	*models.Event
	OccurredAtLocal string `json:"occurred_at_local"`
}

func eventResponse(e *models.Event, tz string) EventResponse {
	return EventResponse{
		Event:           e,
		OccurredAtLocal: timeutil.ToLocal(e.OccurredAt, tz),
	}
}

// ListEvents lists events for a profile, newest first, optionally filtered
// by kind.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	profileID, err := uuid.Parse(mux.Vars(r)["profileID"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid profile ID")
		return
	}

	var kind *models.EventKind
	if k := r.URL.Query().Get("kind"); k != "" {
		if err := validation.ValidateEventKind(k); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		kindEnum := models.EventKind(k)
		kind = &kindEnum
	}

	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	events, err := h.events.ListByProfile(r.Context(), profileID, kind, limit)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve events")
		return
	}

	tz := request.Timezone(r)
	responses := make([]EventResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, eventResponse(e, tz))
	}

	respondJSON(w, http.StatusOK, responses)
}

// CreateEvent records a new care event.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	profileID, err := uuid.Parse(mux.Vars(r)["profileID"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid profile ID")
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	tz := request.Timezone(r)
	occurredAt, err := timeutil.Parse(req.OccurredAt, tz)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "occurred_at must be YYYY-MM-DDTHH:MM:SS.mmm")
		return
	}

	event := &models.Event{
		ID:         uuid.New(),
		ProfileID:  profileID,
		Kind:       models.EventKind(req.Kind),
		Quantity:   req.Quantity,
		OccurredAt: occurredAt,
		Note:       validation.SanitizeText(req.Note),
	}

	if err := h.events.Create(r.Context(), event); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create event")
		return
	}

	respondJSON(w, http.StatusCreated, eventResponse(event, tz))
}

// UpdateEvent modifies the kind, quantity or note of an event.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(mux.Vars(r)["eventID"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid event ID")
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	event, err := h.events.GetByID(r.Context(), eventID)
	if errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Event not found")
		return
	} else if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve event")
		return
	}

	if req.Kind != nil {
		event.Kind = models.EventKind(*req.Kind)
	}
	if req.Quantity != nil {
		event.Quantity = *req.Quantity
	}
	if req.Note != nil {
		event.Note = validation.SanitizeText(*req.Note)
	}

	if err := h.events.Update(r.Context(), event); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Event not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update event")
		return
	}

	respondJSON(w, http.StatusOK, eventResponse(event, request.Timezone(r)))
}

// DeleteEvent soft-deletes an event.
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(mux.Vars(r)["eventID"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid event ID")
		return
	}

	if err := h.events.SoftDelete(r.Context(), eventID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Event not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete event")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
