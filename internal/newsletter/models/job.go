package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the closed set of ledger entry states. Store adapters own the
// string mapping; everything above them switches on the typed value.
type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusSent    JobStatus = "sent"
	JobStatusFailed  JobStatus = "failed"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusSent, JobStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether a ledger entry may move to next.
// Legal moves: pending → sent, pending → failed, failed → pending (retry).
// Sent is terminal and must never be left.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusSent || next == JobStatusFailed
	case JobStatusFailed:
		return next == JobStatusPending
	default:
		return false
	}
}

// EmailJob is an idempotency ledger entry tracking the send outcome for one
// (recipient, message) pair.
//
// Invariants:
//   - IdempotencyKey is unique per distinct (subscriber name, message body)
//   - Status follows CanTransitionTo; sent is terminal
//   - Attempts is monotonically non-decreasing
type EmailJob struct {
	SubscriberID   uuid.UUID
	IdempotencyKey string
	Status         JobStatus
	Attempts       int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RecipientError records one recipient's failure without aborting the batch.
type RecipientError struct {
	SubscriberID uuid.UUID
	Email        string
	Err          error
}

// PublishSummary aggregates the outcome of one publish call.
type PublishSummary struct {
	Attempted int              `json:"attempted"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Errors    []RecipientError `json:"-"`
}
