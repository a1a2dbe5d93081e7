package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bulletin/internal/newsletter/models"
	"bulletin/pkg/platform/sentinel"
)

// InMemory is a map-backed ledger. The store mutex plays the role the
// database's conflict resolution plays for the postgres store: the
// check-and-insert inside EnsurePending is atomic with respect to all other
// ledger mutations.
type InMemory struct {
	mu    sync.Mutex
	jobs  map[string]*models.EmailJob
	clock Clock
}

// InMemoryOption configures an InMemory instance.
type InMemoryOption func(*InMemory)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) InMemoryOption {
	return func(s *InMemory) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	store := &InMemory{
		jobs:  make(map[string]*models.EmailJob),
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (s *InMemory) Get(_ context.Context, key string) (*models.EmailJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[key]
	if !exists {
		return nil, nil
	}
	out := *job
	return &out, nil
}

func (s *InMemory) EnsurePending(_ context.Context, subscriberID uuid.UUID, key string) (*models.EmailJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.jobs[key]; exists {
		out := *existing
		return &out, false, nil
	}

	now := s.clock()
	job := &models.EmailJob{
		SubscriberID:   subscriberID,
		IdempotencyKey: key,
		Status:         models.JobStatusPending,
		Attempts:       0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.jobs[key] = job
	out := *job
	return &out, true, nil
}

func (s *InMemory) Transition(_ context.Context, key string, next models.JobStatus) error {
	if !next.Valid() {
		return fmt.Errorf("transition job: unknown status %q", next)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[key]
	if !exists {
		return fmt.Errorf("transition job: %w", sentinel.ErrNotFound)
	}
	if job.Status == models.JobStatusSent {
		return fmt.Errorf("transition job out of terminal state: %w", sentinel.ErrInvalidState)
	}
	job.Status = next
	job.UpdatedAt = s.clock()
	return nil
}

func (s *InMemory) BumpAttempt(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[key]
	if !exists {
		return fmt.Errorf("bump job attempt: %w", sentinel.ErrNotFound)
	}
	job.Attempts++
	job.UpdatedAt = s.clock()
	return nil
}

func (s *InMemory) ResetForRetry(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[key]
	if !exists || job.Status != models.JobStatusFailed {
		return false, nil
	}
	job.Status = models.JobStatusPending
	job.UpdatedAt = s.clock()
	return true, nil
}
