package models

import (
	"strings"

	dErrors "bulletin/pkg/domain-errors"
)

// Shared name validation errors. Parse returns these values directly so
// callers can distinguish failure modes with errors.Is while the transport
// layer still maps them through their domain-error code.
var (
	ErrNameEmpty         = dErrors.New(dErrors.CodeValidation, "subscriber name cannot be empty")
	ErrNameTooLong       = dErrors.New(dErrors.CodeValidation, "subscriber name must be 256 characters or less")
	ErrNameForbiddenChar = dErrors.New(dErrors.CodeValidation, "subscriber name contains a forbidden character")
)

const maxNameLength = 256

const forbiddenNameChars = `/()"<>\{}`

// SubscriberName is a validated, owned subscriber display name.
//
// Invariants:
//   - trimmed value is non-empty
//   - at most 256 bytes
//   - contains none of / ( ) " < > \ { }
//
// The original (untrimmed) input is preserved on success.
type SubscriberName struct {
	value string
}

// ParseSubscriberName validates raw and returns an immutable name value.
func ParseSubscriberName(raw string) (SubscriberName, error) {
	if strings.TrimSpace(raw) == "" {
		return SubscriberName{}, ErrNameEmpty
	}
	if len(raw) > maxNameLength {
		return SubscriberName{}, ErrNameTooLong
	}
	if strings.ContainsAny(raw, forbiddenNameChars) {
		return SubscriberName{}, ErrNameForbiddenChar
	}
	return SubscriberName{value: raw}, nil
}

func (n SubscriberName) String() string {
	return n.value
}
