package subscriber

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"bulletin/internal/subscription/models"
	"bulletin/pkg/platform/sentinel"
)

// InMemory is a map-backed subscriber store for tests and single-process
// deployments. Email uniqueness is enforced case-insensitively, matching the
// unique index the postgres schema declares.
type InMemory struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*models.SubscriberRecord
	byEmail     map[string]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		subscribers: make(map[uuid.UUID]*models.SubscriberRecord),
		byEmail:     make(map[string]uuid.UUID),
	}
}

func (s *InMemory) Create(_ context.Context, sub *models.Subscriber) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	emailKey := strings.ToLower(sub.Email.String())
	if _, exists := s.byEmail[emailKey]; exists {
		return fmt.Errorf("create subscriber: %w", sentinel.ErrConflict)
	}

	s.subscribers[sub.ID] = &models.SubscriberRecord{
		ID:           sub.ID,
		Name:         sub.Name.String(),
		Email:        sub.Email.String(),
		Status:       sub.Status,
		SubscribedAt: sub.SubscribedAt,
	}
	s.byEmail[emailKey] = sub.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.SubscriberRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.subscribers[id]
	if !exists {
		return nil, fmt.Errorf("find subscriber: %w", sentinel.ErrNotFound)
	}
	out := *record
	return &out, nil
}

func (s *InMemory) MarkConfirmed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.subscribers[id]
	if !exists {
		return fmt.Errorf("mark subscriber confirmed: %w", sentinel.ErrNotFound)
	}
	record.Status = models.SubscriberStatusConfirmed
	return nil
}

func (s *InMemory) ListConfirmed(_ context.Context) ([]models.SubscriberRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []models.SubscriberRecord
	for _, record := range s.subscribers {
		if record.Status == models.SubscriberStatusConfirmed {
			records = append(records, *record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SubscribedAt.Before(records[j].SubscribedAt)
	})
	return records, nil
}

// Corrupt overwrites the stored name and email for a subscriber, bypassing
// validation. Test hook for simulating data drift after confirmation.
func (s *InMemory) Corrupt(id uuid.UUID, name, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, exists := s.subscribers[id]; exists {
		record.Name = name
		record.Email = email
	}
}
