package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/nestling-app/nestling-api/internal/database"
	"github.com/nestling-app/nestling-api/internal/services/insight"
	"github.com/nestling-app/nestling-api/internal/services/llm"
	"github.com/nestling-app/nestling-api/internal/timeutil"
	"github.com/nestling-app/nestling-api/internal/validation"
	"go.uber.org/zap"
)

// InsightHandler handles on-demand feeding analysis requests.
type InsightHandler struct {
	insights *insight.Service
	logger   *zap.Logger
}

// NewInsightHandler creates a new insight handler.
func NewInsightHandler(insights *insight.Service, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{insights: insights, logger: logger}
}

// RegisterRoutes registers insight routes. The router should already carry
// the /profiles prefix.
func (h *InsightHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{profileID}/insights", h.ComputeInsights).Methods("POST")
}

// InsightRequest represents an insight computation request. UserTime is a
// canonical local-time string in the caller's timezone; when absent the
// server clock is used.
type InsightRequest struct {
	Provider string `json:"provider,omitempty" validate:"provider_key"`
	Timezone string `json:"timezone,omitempty" validate:"iana_timezone"`
	UserTime string `json:"user_time,omitempty"`
}

// ComputeInsights renders the profile's feeding state and asks the selected
// backend for an analysis.
func (h *InsightHandler) ComputeInsights(w http.ResponseWriter, r *http.Request) {
	profileID, err := uuid.Parse(mux.Vars(r)["profileID"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid profile ID")
		return
	}

	var req InsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	now := time.Now()
	if req.UserTime != "" {
		parsed, err := timeutil.Parse(req.UserTime, req.Timezone)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "user_time must be YYYY-MM-DDTHH:MM:SS.mmm")
			return
		}
		now = parsed
	}

	result, err := h.insights.Compute(r.Context(), profileID, req.Provider, req.Timezone, now)
	if errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Profile not found")
		return
	}
	if llm.IsInvocationError(err) {
		h.logger.Warn("insight_backend_failure", zap.Error(err))
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Model backend failed")
		return
	}
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to compute insights")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
