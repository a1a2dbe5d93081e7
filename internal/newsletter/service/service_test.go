package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulletin/internal/email"
	"bulletin/internal/newsletter/idempotency"
	"bulletin/internal/newsletter/models"
	jobstore "bulletin/internal/newsletter/store/job"
	submodels "bulletin/internal/subscription/models"
	subscriberstore "bulletin/internal/subscription/store/subscriber"
	dErrors "bulletin/pkg/domain-errors"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []email.Message
	failFor map[string]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{failFor: make(map[string]error)}
}

func (f *fakeSender) Send(_ context.Context, msg email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[msg.To]; ok {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeSender) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	recipients := make([]string, 0, len(f.sent))
	for _, msg := range f.sent {
		recipients = append(recipients, msg.To)
	}
	return recipients
}

type publishFixture struct {
	service     *Service
	subscribers *subscriberstore.InMemory
	jobs        *jobstore.InMemory
	sender      *fakeSender
}

func newPublishFixture(opts ...Option) *publishFixture {
	subscribers := subscriberstore.NewInMemory()
	jobs := jobstore.NewInMemory()
	sender := newFakeSender()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &publishFixture{
		service:     New(subscribers, jobs, sender, logger, opts...),
		subscribers: subscribers,
		jobs:        jobs,
		sender:      sender,
	}
}

func (f *publishFixture) addConfirmed(t *testing.T, name, emailAddr string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	parsedName, err := submodels.ParseSubscriberName(name)
	require.NoError(t, err)
	parsedEmail, err := submodels.ParseSubscriberEmail(emailAddr)
	require.NoError(t, err)

	sub := submodels.NewSubscriber(uuid.New(), parsedName, parsedEmail, time.Now().UTC())
	require.NoError(t, f.subscribers.Create(ctx, sub))
	require.NoError(t, f.subscribers.MarkConfirmed(ctx, sub.ID))
	return sub.ID
}

func (f *publishFixture) addPending(t *testing.T, name, emailAddr string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	parsedName, err := submodels.ParseSubscriberName(name)
	require.NoError(t, err)
	parsedEmail, err := submodels.ParseSubscriberEmail(emailAddr)
	require.NoError(t, err)

	sub := submodels.NewSubscriber(uuid.New(), parsedName, parsedEmail, time.Now().UTC())
	require.NoError(t, f.subscribers.Create(ctx, sub))
	return sub.ID
}

func TestPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to confirmed subscribers only", func(t *testing.T) {
		f := newPublishFixture()
		f.addConfirmed(t, "First", "first@example.com")
		f.addPending(t, "Second", "second@example.com")

		summary, err := f.service.Publish(ctx, "Issue #1", "hello")
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Attempted)
		assert.Equal(t, 1, summary.Succeeded)
		assert.Equal(t, 0, summary.Failed)
		assert.ElementsMatch(t, []string{"first@example.com"}, f.sender.sentTo())
	})

	t.Run("empty recipient set publishes nothing", func(t *testing.T) {
		f := newPublishFixture()

		summary, err := f.service.Publish(ctx, "Issue #1", "hello")
		require.NoError(t, err)
		assert.Zero(t, summary.Attempted)
		assert.Empty(t, f.sender.sentTo())
	})

	t.Run("republishing the same issue sends nothing", func(t *testing.T) {
		f := newPublishFixture()
		f.addConfirmed(t, "First", "first@example.com")
		f.addConfirmed(t, "Second", "second@example.com")

		first, err := f.service.Publish(ctx, "Issue #1", "hello")
		require.NoError(t, err)
		require.Equal(t, 2, first.Succeeded)

		second, err := f.service.Publish(ctx, "Issue #1", "hello")
		require.NoError(t, err)
		assert.Equal(t, 0, second.Attempted)
		assert.Equal(t, 0, second.Succeeded)
		assert.Equal(t, 2, second.Skipped)
		assert.Len(t, f.sender.sentTo(), 2, "no duplicate deliveries")
	})

	t.Run("a different issue to the same recipients sends again", func(t *testing.T) {
		f := newPublishFixture()
		f.addConfirmed(t, "First", "first@example.com")

		_, err := f.service.Publish(ctx, "Issue #1", "hello")
		require.NoError(t, err)

		summary, err := f.service.Publish(ctx, "Issue #2", "different body")
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Succeeded)
		assert.Len(t, f.sender.sentTo(), 2)
	})

	t.Run("invalid stored details skip the recipient not the batch", func(t *testing.T) {
		f := newPublishFixture()
		f.addConfirmed(t, "First", "first@example.com")
		corruptedID := f.addConfirmed(t, "Second", "second@example.com")
		f.addConfirmed(t, "Third", "third@example.com")

		f.subscribers.Corrupt(corruptedID, "bad/name", "second@example.com")

		summary, err := f.service.Publish(ctx, "Issue #1", "hello")
		require.NoError(t, err)

		assert.Equal(t, 2, summary.Attempted)
		assert.Equal(t, 2, summary.Succeeded)
		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, 0, summary.Failed)
		assert.ElementsMatch(t, []string{"first@example.com", "third@example.com"}, f.sender.sentTo())
	})

	t.Run("send failure is recorded and retried on the next publish", func(t *testing.T) {
		f := newPublishFixture()
		f.addConfirmed(t, "First", "first@example.com")
		flakyID := f.addConfirmed(t, "Flaky", "flaky@example.com")
		f.sender.failFor["flaky@example.com"] = errors.New("mailbox on fire")

		summary, err := f.service.Publish(ctx, "Issue #1", "hello")
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Attempted)
		assert.Equal(t, 1, summary.Succeeded)
		assert.Equal(t, 1, summary.Failed)
		require.Len(t, summary.Errors, 1)
		assert.Equal(t, flakyID, summary.Errors[0].SubscriberID)

		delete(f.sender.failFor, "flaky@example.com")

		retry, err := f.service.Publish(ctx, "Issue #1", "hello")
		require.NoError(t, err)
		assert.Equal(t, 1, retry.Attempted, "only the failed recipient is retried")
		assert.Equal(t, 1, retry.Succeeded)
		assert.Equal(t, 1, retry.Skipped)
		assert.ElementsMatch(t, []string{"first@example.com", "flaky@example.com"}, f.sender.sentTo())
	})

	t.Run("an existing pending entry is skipped with a bumped attempt", func(t *testing.T) {
		f := newPublishFixture()
		id := f.addConfirmed(t, "First", "first@example.com")

		// Simulate an in-flight publish elsewhere holding the pending marker.
		key := idempotency.Key("First", "hello")
		_, created, err := f.jobs.EnsurePending(ctx, id, key)
		require.NoError(t, err)
		require.True(t, created)

		summary, err := f.service.Publish(ctx, "Issue #1", "hello")
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Attempted)
		assert.Equal(t, 1, summary.Skipped)
		assert.Empty(t, f.sender.sentTo())

		job, err := f.jobs.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, 1, job.Attempts)
	})

	t.Run("ledger write failure blocks the send", func(t *testing.T) {
		subscribers := subscriberstore.NewInMemory()
		sender := newFakeSender()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		jobs := &brokenJobStore{InMemory: jobstore.NewInMemory(), ensureErr: errors.New("ledger down")}
		svc := New(subscribers, jobs, sender, logger)

		f := &publishFixture{service: svc, subscribers: subscribers, sender: sender}
		f.addConfirmed(t, "First", "first@example.com")

		summary, err := svc.Publish(ctx, "Issue #1", "hello")
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Attempted)
		assert.Equal(t, 1, summary.Failed)
		require.Len(t, summary.Errors, 1)
		assert.Empty(t, sender.sentTo(), "no send without a durable pending marker")
	})

	t.Run("recipient listing failure returns an internal error", func(t *testing.T) {
		sender := newFakeSender()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc := New(&brokenSource{err: errors.New("db down")}, jobstore.NewInMemory(), sender, logger)

		_, err := svc.Publish(ctx, "Issue #1", "hello")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal), "expected internal error, got %v", err)
	})
}

type brokenJobStore struct {
	*jobstore.InMemory
	ensureErr error
}

func (b *brokenJobStore) EnsurePending(context.Context, uuid.UUID, string) (*models.EmailJob, bool, error) {
	return nil, false, b.ensureErr
}

type brokenSource struct {
	err error
}

func (b *brokenSource) ListConfirmed(context.Context) ([]submodels.SubscriberRecord, error) {
	return nil, b.err
}
