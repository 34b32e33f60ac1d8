package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nestling-app/nestling-api/internal/models"
)

// ProfileRepository handles profile database operations.
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile. Unset weight is stored as the sentinel value.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (id, subject_name, subject_birth_date, subject_weight_kg, prompt_override, extra_instructions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	var birthDate sql.NullTime
	if profile.SubjectBirthDate != nil {
		birthDate = sql.NullTime{Time: *profile.SubjectBirthDate, Valid: true}
	}
	if profile.SubjectWeightKg <= 0 {
		profile.SubjectWeightKg = models.UnknownWeight
	}

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		profile.ID,
		profile.SubjectName,
		birthDate,
		profile.SubjectWeightKg,
		profile.PromptOverride,
		profile.ExtraInstructions,
		now,
		now,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetByID retrieves a profile by ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile := &models.Profile{}
	var birthDate sql.NullTime
	var promptOverride, extraInstructions sql.NullString

	query := `
		SELECT id, subject_name, subject_birth_date, subject_weight_kg, prompt_override, extra_instructions, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&profile.SubjectName,
		&birthDate,
		&profile.SubjectWeightKg,
		&promptOverride,
		&extraInstructions,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if birthDate.Valid {
		profile.SubjectBirthDate = &birthDate.Time
	}
	profile.PromptOverride = promptOverride.String
	profile.ExtraInstructions = extraInstructions.String

	return profile, nil
}

// Update modifies an existing profile.
func (r *ProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	query := `
		UPDATE profiles
		SET subject_name = $2, subject_birth_date = $3, subject_weight_kg = $4, prompt_override = $5, extra_instructions = $6, updated_at = $7
		WHERE id = $1
		RETURNING updated_at
	`

	var birthDate sql.NullTime
	if profile.SubjectBirthDate != nil {
		birthDate = sql.NullTime{Time: *profile.SubjectBirthDate, Valid: true}
	}
	if profile.SubjectWeightKg <= 0 {
		profile.SubjectWeightKg = models.UnknownWeight
	}

	err := r.db.QueryRowContext(ctx, query,
		profile.ID,
		profile.SubjectName,
		birthDate,
		profile.SubjectWeightKg,
		profile.PromptOverride,
		profile.ExtraInstructions,
		time.Now(),
	).Scan(&profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}
