package models

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

var participantTypes = map[string]bool{
	"":            true,
	"any":         true,
	"plaintiff":   true,
	"defendant":   true,
	"third_party": true,
	"other":       true,
}

// MaxPagesLimit caps client-supplied page counts.
const MaxPagesLimit = 40

func ValidateCheckRequest(req *CheckRequest) error {
	if req == nil {
		return &ValidationError{
			Field:   "request",
			Message: "check request cannot be nil",
		}
	}

	if strings.TrimSpace(req.Participant) == "" {
		return &ValidationError{
			Field:   "participant",
			Message: "participant is required",
		}
	}

	if !participantTypes[req.ParticipantType] {
		return &ValidationError{
			Field:   "participant_type",
			Message: fmt.Sprintf("unknown participant type %q", req.ParticipantType),
		}
	}

	if req.MaxPages < 0 || req.MaxPages > MaxPagesLimit {
		return &ValidationError{
			Field:   "max_pages",
			Message: fmt.Sprintf("must be between 0 and %d", MaxPagesLimit),
		}
	}

	if req.MaxCases < 0 {
		return &ValidationError{
			Field:   "max_cases",
			Message: "must not be negative",
		}
	}

	return nil
}

// Normalize trims the participant and assigns an id when missing.
func (req *CheckRequest) Normalize(newID func() string) {
	req.Participant = strings.TrimSpace(req.Participant)
	req.ParticipantType = strings.ToLower(strings.TrimSpace(req.ParticipantType))
	if req.ID == "" && newID != nil {
		req.ID = newID()
	}
}
