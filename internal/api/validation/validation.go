package validation

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores bytes past 72
	maxNameLength     = 255
)

func validateEmail(field, email string) []FieldError {
	email = strings.TrimSpace(email)
	if email == "" {
		return []FieldError{{Field: field, Message: field + " is required"}}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return []FieldError{{Field: field, Message: field + " must be a valid email address"}}
	}
	return nil
}

func validateNewPassword(field, password string) []FieldError {
	switch {
	case password == "":
		return []FieldError{{Field: field, Message: field + " is required"}}
	case len(password) < minPasswordLength:
		return []FieldError{{Field: field, Message: field + " must be at least 8 characters"}}
	case len(password) > maxPasswordLength:
		return []FieldError{{Field: field, Message: field + " must be at most 72 bytes"}}
	}
	return nil
}

func validateName(field, name string, required bool) []FieldError {
	name = strings.TrimSpace(name)
	if name == "" {
		if required {
			return []FieldError{{Field: field, Message: field + " is required"}}
		}
		return nil
	}
	if len(name) > maxNameLength {
		return []FieldError{{Field: field, Message: field + " must be at most 255 characters"}}
	}
	return nil
}

// ParseUUIDs parses a list of UUID strings, reporting the first invalid entry.
func ParseUUIDs(field string, raw []string) ([]uuid.UUID, []FieldError) {
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]bool, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, []FieldError{{Field: field, Message: field + " must contain valid UUIDs"}}
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}
