package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/nestling-app/nestling-api/internal/services/speech"
	"github.com/nestling-app/nestling-api/internal/timeutil"
	"github.com/nestling-app/nestling-api/internal/validation"
	"go.uber.org/zap"
)

// TranscriptionHandler handles audio transcription and transcript evaluation
// requests.
type TranscriptionHandler struct {
	speech *speech.Service
	logger *zap.Logger
}

// NewTranscriptionHandler creates a new transcription handler.
func NewTranscriptionHandler(speech *speech.Service, logger *zap.Logger) *TranscriptionHandler {
	return &TranscriptionHandler{speech: speech, logger: logger}
}

// RegisterRoutes registers transcription routes. The router should already
// carry the /transcriptions prefix.
func (h *TranscriptionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.Transcribe).Methods("POST")
	r.HandleFunc("/evaluate", h.Evaluate).Methods("POST")
}

// TranscribeRequest carries base64-encoded audio.
type TranscribeRequest struct {
	AudioBase64 string `json:"audio_base64" validate:"required"`
}

// EvaluateRequest asks for feeding parameters to be extracted from a
// transcript.
type EvaluateRequest struct {
	Transcription string `json:"transcription" validate:"required,max=10000"`
	Timezone      string `json:"timezone,omitempty" validate:"iana_timezone"`
	UserTime      string `json:"user_time,omitempty"`
}

// Transcribe decodes the audio payload and returns its transcript.
func (h *TranscriptionHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req TranscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "audio_base64 is not valid base64")
		return
	}

	transcription, err := h.speech.Transcribe(r.Context(), bytes.NewReader(audio), "audio.wav")
	if err != nil {
		h.logger.Warn("transcription_failed", zap.Error(err))
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to transcribe audio")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"transcription": transcription})
}

// Evaluate extracts the feeding amount and time from a transcript.
func (h *TranscriptionHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	userTime := time.Now()
	if req.UserTime != "" {
		parsed, err := timeutil.Parse(req.UserTime, req.Timezone)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "user_time must be YYYY-MM-DDTHH:MM:SS.mmm")
			return
		}
		userTime = parsed
	}

	extraction, err := h.speech.Evaluate(r.Context(), req.Transcription, req.Timezone, userTime)
	if err != nil {
		h.logger.Warn("transcript_evaluation_failed", zap.Error(err))
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "Failed to evaluate transcription")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"ai_evaluated_args": extraction})
}
