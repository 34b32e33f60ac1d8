// Package validation holds the shared request validator and custom rules for
// domain enums.
package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/nestling-app/nestling-api/internal/models"
)

// Validate is the shared validator instance.
var Validate *validator.Validate

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("event_kind", validateEventKind); err != nil {
		panic(fmt.Sprintf("failed to register event_kind validator: %v", err))
	}
	if err := Validate.RegisterValidation("iana_timezone", validateTimezone); err != nil {
		panic(fmt.Sprintf("failed to register iana_timezone validator: %v", err))
	}
	if err := Validate.RegisterValidation("provider_key", validateProviderKey); err != nil {
		panic(fmt.Sprintf("failed to register provider_key validator: %v", err))
	}
}

// validateEventKind validates that a string is a known EventKind value.
func validateEventKind(fl validator.FieldLevel) bool {
	return ValidateEventKind(fl.Field().String()) == nil
}

// validateTimezone validates that a string resolves in the IANA zone
// database. Empty strings pass; callers treat them as "use the default zone".
func validateTimezone(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.LoadLocation(value)
	return err == nil
}

// validateProviderKey accepts any non-empty key shape. Unknown keys are not
// an error; the router falls back to the default backend.
func validateProviderKey(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || strings.TrimSpace(value) == value
}

// ValidateEventKind validates an EventKind string value.
func ValidateEventKind(value string) error {
	kind := models.EventKind(value)
	for _, known := range models.KnownEventKinds {
		if kind == known {
			return nil
		}
	}
	return fmt.Errorf("invalid kind: %s (must be 'feed', 'wet', 'soiled', or 'sleep')", value)
}

// SanitizeText trims whitespace and removes control characters except newline
// and tab.
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
