package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"bulletin/internal/email"
	"bulletin/internal/platform/metrics"
	"bulletin/internal/subscription/models"
	"bulletin/internal/subscription/token"
	dErrors "bulletin/pkg/domain-errors"
	"bulletin/pkg/platform/sentinel"
	"bulletin/pkg/requestcontext"
)

// SubscriberStore persists subscriber records.
type SubscriberStore interface {
	Create(ctx context.Context, sub *models.Subscriber) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SubscriberRecord, error)
	MarkConfirmed(ctx context.Context, id uuid.UUID) error
}

// TokenStore persists confirmation tokens. Append-only: issued tokens are
// never invalidated, so a token stays redeemable after use.
type TokenStore interface {
	Insert(ctx context.Context, token string, subscriberID uuid.UUID) error
	FindSubscriberID(ctx context.Context, token string) (uuid.UUID, error)
}

// StoreTx runs a function atomically against the backing store. Register and
// Confirm each execute their read+write sequence inside one transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RegistrationResult carries what downstream confirmation-email delivery
// needs: the new subscriber id and the one-time token.
type RegistrationResult struct {
	SubscriberID uuid.UUID
	Token        string
}

// Service handles the subscriber confirmation lifecycle: registration with a
// one-time token, and token redemption flipping the subscriber to confirmed.
type Service struct {
	subscribers SubscriberStore
	tokens      TokenStore
	tx          StoreTx
	sender      email.Sender
	logger      *slog.Logger
	metrics     *metrics.Metrics
	baseURL     string
}

type Option func(cfg *serviceConfig)

type serviceConfig struct {
	tx      StoreTx
	metrics *metrics.Metrics
	baseURL string
}

// WithTx sets the transaction runner. Defaults to a mutex-serialized runner
// suitable for the in-memory stores.
func WithTx(tx StoreTx) Option {
	return func(cfg *serviceConfig) {
		cfg.tx = tx
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *serviceConfig) {
		cfg.metrics = m
	}
}

// WithBaseURL sets the public address used to build confirmation links.
func WithBaseURL(baseURL string) Option {
	return func(cfg *serviceConfig) {
		cfg.baseURL = baseURL
	}
}

func New(subscribers SubscriberStore, tokens TokenStore, sender email.Sender, logger *slog.Logger, opts ...Option) *Service {
	cfg := &serviceConfig{baseURL: "http://localhost:8080"}
	for _, opt := range opts {
		opt(cfg)
	}
	tx := cfg.tx
	if tx == nil {
		tx = newInMemoryStoreTx()
	}
	return &Service{
		subscribers: subscribers,
		tokens:      tokens,
		tx:          tx,
		sender:      sender,
		logger:      logger,
		metrics:     cfg.metrics,
		baseURL:     cfg.baseURL,
	}
}

// Register validates the raw name and email, persists a pending subscriber
// together with a fresh confirmation token, and hands the token off for
// confirmation-email delivery. The first validation failure is reported
// verbatim. A duplicate email is a conflict, not an internal failure.
func (s *Service) Register(ctx context.Context, rawName, rawEmail string) (*RegistrationResult, error) {
	name, err := models.ParseSubscriberName(rawName)
	if err != nil {
		return nil, err
	}
	emailAddr, err := models.ParseSubscriberEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	sub := models.NewSubscriber(uuid.New(), name, emailAddr, requestcontext.Now(ctx))

	confirmationToken, err := token.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate confirmation token")
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.subscribers.Create(txCtx, sub); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "email is already subscribed")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create subscriber")
		}
		if err := s.tokens.Insert(txCtx, confirmationToken, sub.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store confirmation token")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Confirmation delivery is best-effort: the subscriber row is already
	// durable and the token can be re-sent out of band.
	if err := s.sendConfirmation(ctx, sub, confirmationToken); err != nil {
		s.logger.ErrorContext(ctx, "confirmation email send failed",
			"request_id", requestcontext.RequestID(ctx),
			"subscriber_id", sub.ID,
			"error", err.Error(),
		)
	}

	s.metrics.IncrementSubscribersRegistered()
	return &RegistrationResult{SubscriberID: sub.ID, Token: confirmationToken}, nil
}

// Confirm redeems a token and marks the owning subscriber confirmed. The
// lookup and the status update run in a single transaction. Redeeming a token
// for an already confirmed subscriber succeeds as a no-op.
func (s *Service) Confirm(ctx context.Context, confirmationToken string) error {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		subscriberID, err := s.tokens.FindSubscriberID(txCtx, confirmationToken)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "unknown confirmation token")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up confirmation token")
		}
		if err := s.subscribers.MarkConfirmed(txCtx, subscriberID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm subscriber")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.IncrementSubscriptionsConfirmed()
	return nil
}

func (s *Service) sendConfirmation(ctx context.Context, sub *models.Subscriber, confirmationToken string) error {
	link := fmt.Sprintf("%s/subscriptions/confirm?token=%s", s.baseURL, confirmationToken)
	msg := email.Message{
		To:      sub.Email.String(),
		ToName:  sub.Name.String(),
		Subject: "Welcome!",
		TextBody: fmt.Sprintf(
			"Welcome to our newsletter!\nVisit %s to confirm your subscription.", link),
		HTMLBody: fmt.Sprintf(
			`Welcome to our newsletter!<br />Click <a href=%q>here</a> to confirm your subscription.`, link),
	}
	return s.sender.Send(ctx, msg)
}
