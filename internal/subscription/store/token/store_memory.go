package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"bulletin/pkg/platform/sentinel"
)

// InMemory is a map-backed token store. Append-only, like its postgres
// counterpart: nothing removes a token once issued.
type InMemory struct {
	mu     sync.RWMutex
	tokens map[string]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{tokens: make(map[string]uuid.UUID)}
}

func (s *InMemory) Insert(_ context.Context, token string, subscriberID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = subscriberID
	return nil
}

func (s *InMemory) FindSubscriberID(_ context.Context, token string) (uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subscriberID, exists := s.tokens[token]
	if !exists {
		return uuid.Nil, fmt.Errorf("find token: %w", sentinel.ErrNotFound)
	}
	return subscriberID, nil
}
