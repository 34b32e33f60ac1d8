package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/nestling-app/nestling-api/internal/database"
	"github.com/nestling-app/nestling-api/internal/models"
	"github.com/nestling-app/nestling-api/internal/validation"
)

// birthDateLayout is the wire format for subject_birth_date.
const birthDateLayout = "2006-01-02"

// ProfileHandler handles profile requests.
type ProfileHandler struct {
	profiles database.ProfileRepositoryInterface
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profiles database.ProfileRepositoryInterface) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// RegisterRoutes registers profile routes. The router should already carry
// the /profiles prefix.
func (h *ProfileHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{profileID}", h.GetProfile).Methods("GET")
	r.HandleFunc("/{profileID}", h.UpdateProfile).Methods("PATCH")
}

// UpdateProfileRequest represents a profile update. Absent fields are left
// unchanged.
type UpdateProfileRequest struct {
	SubjectName       *string  `json:"subject_name,omitempty" validate:"omitempty,max=200"`
	SubjectBirthDate  *string  `json:"subject_birth_date,omitempty"`
	SubjectWeightKg   *float64 `json:"subject_weight_kg,omitempty"`
	PromptOverride    *string  `json:"prompt_override,omitempty" validate:"omitempty,max=10000"`
	ExtraInstructions *string  `json:"extra_instructions,omitempty" validate:"omitempty,max=10000"`
}

// GetProfile returns the profile, creating an empty one on first access so
// clients never have to issue an explicit create call.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := uuid.Parse(mux.Vars(r)["profileID"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid profile ID")
		return
	}

	profile, err := h.profiles.GetByID(r.Context(), profileID)
	if errors.Is(err, database.ErrNotFound) {
		profile = &models.Profile{
			ID:              profileID,
			SubjectWeightKg: models.UnknownWeight,
		}
		if err := h.profiles.Create(r.Context(), profile); err != nil {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create profile")
			return
		}
	} else if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// UpdateProfile applies a partial profile update.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := uuid.Parse(mux.Vars(r)["profileID"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid profile ID")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	profile, err := h.profiles.GetByID(r.Context(), profileID)
	if errors.Is(err, database.ErrNotFound) {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Profile not found")
		return
	} else if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve profile")
		return
	}

	if req.SubjectName != nil {
		profile.SubjectName = validation.SanitizeText(*req.SubjectName)
	}
	if req.SubjectBirthDate != nil {
		if *req.SubjectBirthDate == "" {
			profile.SubjectBirthDate = nil
		} else {
			birthDate, err := time.Parse(birthDateLayout, *req.SubjectBirthDate)
			if err != nil {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", "subject_birth_date must be YYYY-MM-DD")
				return
			}
			profile.SubjectBirthDate = &birthDate
		}
	}
	if req.SubjectWeightKg != nil {
		profile.SubjectWeightKg = *req.SubjectWeightKg
	}
	if req.PromptOverride != nil {
		profile.PromptOverride = *req.PromptOverride
	}
	if req.ExtraInstructions != nil {
		profile.ExtraInstructions = validation.SanitizeText(*req.ExtraInstructions)
	}

	if err := h.profiles.Update(r.Context(), profile); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}
