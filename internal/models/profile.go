package models

import (
	"time"

	"github.com/google/uuid"
)

// DailyTargetPerKg is the feeding guideline constant: mL required per 24h per
// kilogram of body weight.
const DailyTargetPerKg = 150

// UnknownWeight is the sentinel for a profile whose weight has not been set.
const UnknownWeight = -1

// Profile is one tracked subject and its assistant configuration.
type Profile struct {
	ID                uuid.UUID  `json:"id"`
	SubjectName       string     `json:"subject_name"`
	SubjectBirthDate  *time.Time `json:"subject_birth_date,omitempty"`
	SubjectWeightKg   float64    `json:"subject_weight_kg"`
	PromptOverride    string     `json:"prompt_override,omitempty"`
	ExtraInstructions string     `json:"extra_instructions,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// DailyTargetQuantity returns the required feeding amount per 24h in mL, or
// UnknownWeight when the subject weight is not set.
func (p *Profile) DailyTargetQuantity() float64 {
	if p.SubjectWeightKg <= 0 {
		return UnknownWeight
	}
	return DailyTargetPerKg * p.SubjectWeightKg
}
