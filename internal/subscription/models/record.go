package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriberRecord is the raw persisted form of a subscriber. Name and Email
// are unvalidated strings exactly as stored: readers that need provably-valid
// values (the dispatcher) re-parse them, since stored data can drift after
// confirmation.
type SubscriberRecord struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Status       SubscriberStatus
	SubscribedAt time.Time
}
