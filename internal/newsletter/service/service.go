package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bulletin/internal/email"
	"bulletin/internal/newsletter/idempotency"
	"bulletin/internal/newsletter/models"
	"bulletin/internal/platform/metrics"
	submodels "bulletin/internal/subscription/models"
	dErrors "bulletin/pkg/domain-errors"
	"bulletin/pkg/requestcontext"
)

// SubscriberSource provides the confirmed recipient set for a publish call.
type SubscriberSource interface {
	ListConfirmed(ctx context.Context) ([]submodels.SubscriberRecord, error)
}

// JobStore is the idempotency ledger. EnsurePending and ResetForRetry must be
// single atomic store operations: the dispatcher's single-flight guarantee
// rests on exactly one caller winning each conditional write per key.
type JobStore interface {
	EnsurePending(ctx context.Context, subscriberID uuid.UUID, key string) (*models.EmailJob, bool, error)
	Transition(ctx context.Context, key string, next models.JobStatus) error
	BumpAttempt(ctx context.Context, key string) error
	ResetForRetry(ctx context.Context, key string) (bool, error)
}

const defaultConcurrency = 8

// Service fans a newsletter out to every confirmed subscriber under ledger
// control, guaranteeing at most one send per (recipient, message) pair even
// across retried or concurrent publish calls.
type Service struct {
	subscribers SubscriberSource
	jobs        JobStore
	sender      email.Sender
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
}

type Option func(cfg *serviceConfig)

type serviceConfig struct {
	metrics     *metrics.Metrics
	concurrency int
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *serviceConfig) {
		cfg.metrics = m
	}
}

// WithConcurrency bounds the fan-out worker count.
func WithConcurrency(n int) Option {
	return func(cfg *serviceConfig) {
		if n > 0 {
			cfg.concurrency = n
		}
	}
}

func New(subscribers SubscriberSource, jobs JobStore, sender email.Sender, logger *slog.Logger, opts ...Option) *Service {
	cfg := &serviceConfig{concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		subscribers: subscribers,
		jobs:        jobs,
		sender:      sender,
		logger:      logger,
		metrics:     cfg.metrics,
		concurrency: cfg.concurrency,
	}
}

// Publish sends the message to every confirmed subscriber. The recipient set
// is fetched once at the start of the call. One recipient's failure never
// aborts the batch: validation and send errors are recorded in the summary
// and the loop moves on. Only a failure to read the recipient set at all
// returns an error.
func (s *Service) Publish(ctx context.Context, title, message string) (*models.PublishSummary, error) {
	recipients, err := s.subscribers.ListConfirmed(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list confirmed subscribers")
	}

	summary := &models.PublishSummary{}
	var mu sync.Mutex

	// Workers never return errors: an errgroup failure would cancel the
	// remaining recipients, which is exactly what the isolation contract
	// forbids. The group is used for its bounded-concurrency scheduling.
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, recipient := range recipients {
		g.Go(func() error {
			s.dispatch(ctx, recipient, title, message, summary, &mu)
			return nil
		})
	}
	_ = g.Wait()

	if s.metrics != nil {
		s.metrics.NewslettersPublished.Inc()
		s.metrics.EmailsSent.Add(float64(summary.Succeeded))
		s.metrics.EmailsFailed.Add(float64(summary.Failed))
		s.metrics.EmailsSkipped.Add(float64(summary.Skipped))
	}
	return summary, nil
}

// dispatch applies the per-recipient ledger policy:
//
//	no entry  → create pending, send
//	pending   → bump attempts, skip (a send is or was in flight elsewhere)
//	failed    → claim back to pending, send (immediate retry)
//	sent      → skip permanently
func (s *Service) dispatch(ctx context.Context, recipient submodels.SubscriberRecord, title, message string, summary *models.PublishSummary, mu *sync.Mutex) {
	name, nameErr := submodels.ParseSubscriberName(recipient.Name)
	_, emailErr := submodels.ParseSubscriberEmail(recipient.Email)
	if nameErr != nil || emailErr != nil {
		// Stored details drifted since confirmation. Skip this recipient,
		// never the batch.
		s.logger.WarnContext(ctx, "skipping subscriber with invalid stored details",
			"request_id", requestcontext.RequestID(ctx),
			"subscriber_id", recipient.ID,
		)
		mu.Lock()
		summary.Skipped++
		mu.Unlock()
		return
	}

	key := idempotency.Key(name.String(), message)

	job, created, err := s.jobs.EnsurePending(ctx, recipient.ID, key)
	if err != nil {
		// Without a durable pending marker the send must not proceed:
		// sending anyway would reopen the double-send race.
		s.recordFailure(ctx, summary, mu, recipient, fmt.Errorf("ensure pending: %w", err))
		return
	}

	if !created {
		switch job.Status {
		case models.JobStatusSent:
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			return
		case models.JobStatusPending:
			if err := s.jobs.BumpAttempt(ctx, key); err != nil {
				s.logger.ErrorContext(ctx, "failed to bump job attempt",
					"request_id", requestcontext.RequestID(ctx),
					"subscriber_id", recipient.ID,
					"error", err.Error(),
				)
			}
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			return
		case models.JobStatusFailed:
			claimed, err := s.jobs.ResetForRetry(ctx, key)
			if err != nil {
				s.recordFailure(ctx, summary, mu, recipient, fmt.Errorf("reset for retry: %w", err))
				return
			}
			if !claimed {
				// Another publish call claimed the retry first.
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				return
			}
		}
	}

	mu.Lock()
	summary.Attempted++
	mu.Unlock()

	sendErr := s.sender.Send(ctx, email.Message{
		To:       recipient.Email,
		ToName:   name.String(),
		Subject:  title,
		TextBody: message,
	})
	if sendErr != nil {
		if err := s.jobs.Transition(ctx, key, models.JobStatusFailed); err != nil {
			s.logger.ErrorContext(ctx, "failed to mark job failed",
				"request_id", requestcontext.RequestID(ctx),
				"subscriber_id", recipient.ID,
				"error", err.Error(),
			)
		}
		s.recordFailure(ctx, summary, mu, recipient, sendErr)
		return
	}

	if err := s.jobs.Transition(ctx, key, models.JobStatusSent); err != nil {
		// The email went out; the recipient was served. Losing the terminal
		// marker is logged loudly because it allows a redundant retry later.
		s.logger.ErrorContext(ctx, "failed to mark job sent",
			"request_id", requestcontext.RequestID(ctx),
			"subscriber_id", recipient.ID,
			"error", err.Error(),
		)
	}
	mu.Lock()
	summary.Succeeded++
	mu.Unlock()
}

func (s *Service) recordFailure(ctx context.Context, summary *models.PublishSummary, mu *sync.Mutex, recipient submodels.SubscriberRecord, err error) {
	s.logger.ErrorContext(ctx, "newsletter send failed",
		"request_id", requestcontext.RequestID(ctx),
		"subscriber_id", recipient.ID,
		"error", err.Error(),
	)
	mu.Lock()
	summary.Failed++
	summary.Errors = append(summary.Errors, models.RecipientError{
		SubscriberID: recipient.ID,
		Email:        recipient.Email,
		Err:          err,
	})
	mu.Unlock()
}
