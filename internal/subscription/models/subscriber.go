package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriberStatus is the closed set of subscriber lifecycle states. The
// store adapters own the string mapping; everything above them switches on
// the typed value.
type SubscriberStatus string

const (
	SubscriberStatusPending   SubscriberStatus = "pending"
	SubscriberStatusConfirmed SubscriberStatus = "confirmed"
)

func (s SubscriberStatus) Valid() bool {
	switch s {
	case SubscriberStatusPending, SubscriberStatusConfirmed:
		return true
	}
	return false
}

// Subscriber is the aggregate for a mailing list member.
//
// Invariants:
//   - Email is globally unique (enforced by the store)
//   - Status transitions: pending → confirmed only; confirming an already
//     confirmed subscriber is a no-op
//   - SubscribedAt is immutable after construction
type Subscriber struct {
	ID           uuid.UUID
	Name         SubscriberName
	Email        SubscriberEmail
	Status       SubscriberStatus
	SubscribedAt time.Time
}

// NewSubscriber constructs a pending subscriber from already-validated values.
func NewSubscriber(id uuid.UUID, name SubscriberName, email SubscriberEmail, now time.Time) *Subscriber {
	return &Subscriber{
		ID:           id,
		Name:         name,
		Email:        email,
		Status:       SubscriberStatusPending,
		SubscribedAt: now,
	}
}

func (s *Subscriber) IsConfirmed() bool {
	return s.Status == SubscriberStatusConfirmed
}

// ApplyConfirmation transitions the subscriber to confirmed. Safe to call on
// an already confirmed subscriber.
func (s *Subscriber) ApplyConfirmation() {
	s.Status = SubscriberStatusConfirmed
}
