package models

import (
	"net/mail"

	dErrors "bulletin/pkg/domain-errors"
)

// ErrEmailInvalid is returned for any address that fails syntax validation,
// including addresses longer than 256 characters.
var ErrEmailInvalid = dErrors.New(dErrors.CodeValidation, "invalid subscriber email address")

const maxEmailLength = 256

// SubscriberEmail is a validated, owned email address.
type SubscriberEmail struct {
	value string
}

// ParseSubscriberEmail validates raw against standard address syntax and
// returns an immutable email value. Display names ("A <a@b.c>") are rejected;
// only a bare address is accepted.
func ParseSubscriberEmail(raw string) (SubscriberEmail, error) {
	if len(raw) > maxEmailLength {
		return SubscriberEmail{}, ErrEmailInvalid
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return SubscriberEmail{}, ErrEmailInvalid
	}
	return SubscriberEmail{value: raw}, nil
}

func (e SubscriberEmail) String() string {
	return e.value
}
