package service

import (
	"context"
	"sync"
)

// inMemoryStoreTx serializes transactional sections with a mutex. The
// in-memory stores have no real transactions, so mutual exclusion across the
// read+write sequence is the equivalent atomicity guarantee.
type inMemoryStoreTx struct {
	mu sync.Mutex
}

func newInMemoryStoreTx() *inMemoryStoreTx {
	return &inMemoryStoreTx{}
}

func (t *inMemoryStoreTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
