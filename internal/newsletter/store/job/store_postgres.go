package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bulletin/internal/newsletter/models"
	"bulletin/pkg/platform/sentinel"
)

// Clock abstracts time.Now for testability.
type Clock func() time.Time

// PostgresStore persists idempotency ledger entries in PostgreSQL. All
// conditional logic runs inside single statements so concurrent dispatchers
// racing on the same key serialize at the database, not in Go.
type PostgresStore struct {
	db    *sql.DB
	clock Clock
}

// PostgresOption configures a PostgresStore instance.
type PostgresOption func(*PostgresStore)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock Clock) PostgresOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	store := &PostgresStore{
		db:    db,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Get returns the ledger entry for key, or nil when none exists.
func (s *PostgresStore) Get(ctx context.Context, key string) (*models.EmailJob, error) {
	query := `
		SELECT subscriber_id, idempotency_key, status, attempts, created_at, updated_at
		FROM idempotency
		WHERE idempotency_key = $1
	`
	job, err := scanJob(s.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// EnsurePending atomically inserts a fresh pending entry for key, or returns
// the existing entry unchanged. The single INSERT ... ON CONFLICT statement
// is what serializes concurrent dispatchers: exactly one caller observes
// created=true for a given key. xmax is zero only for rows the statement
// itself inserted, which distinguishes insert from conflict.
func (s *PostgresStore) EnsurePending(ctx context.Context, subscriberID uuid.UUID, key string) (*models.EmailJob, bool, error) {
	now := s.clock()
	query := `
		INSERT INTO idempotency (subscriber_id, idempotency_key, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $4)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			idempotency_key = EXCLUDED.idempotency_key
		RETURNING subscriber_id, idempotency_key, status, attempts, created_at, updated_at, (xmax = 0) AS inserted
	`
	var job models.EmailJob
	var status string
	var inserted bool
	err := s.db.QueryRowContext(ctx, query, subscriberID, key, string(models.JobStatusPending), now).
		Scan(&job.SubscriberID, &job.IdempotencyKey, &status, &job.Attempts, &job.CreatedAt, &job.UpdatedAt, &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("ensure pending job: %w", err)
	}
	job.Status = models.JobStatus(status)
	return &job, inserted, nil
}

// Transition moves the entry to next and refreshes updated_at. Any attempt to
// leave the terminal sent state is rejected with sentinel.ErrInvalidState
// rather than silently ignored.
func (s *PostgresStore) Transition(ctx context.Context, key string, next models.JobStatus) error {
	if !next.Valid() {
		return fmt.Errorf("transition job: unknown status %q", next)
	}
	query := `
		UPDATE idempotency
		SET status = $2, updated_at = $3
		WHERE idempotency_key = $1 AND status <> $4
	`
	result, err := s.db.ExecContext(ctx, query, key, string(next), s.clock(), string(models.JobStatusSent))
	if err != nil {
		return fmt.Errorf("transition job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition job rows affected: %w", err)
	}
	if rows == 0 {
		existing, err := s.Get(ctx, key)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("transition job: %w", sentinel.ErrNotFound)
		}
		return fmt.Errorf("transition job out of terminal state: %w", sentinel.ErrInvalidState)
	}
	return nil
}

// BumpAttempt increments the attempt counter for an in-flight entry.
func (s *PostgresStore) BumpAttempt(ctx context.Context, key string) error {
	query := `
		UPDATE idempotency
		SET attempts = attempts + 1, updated_at = $2
		WHERE idempotency_key = $1
	`
	result, err := s.db.ExecContext(ctx, query, key, s.clock())
	if err != nil {
		return fmt.Errorf("bump job attempt: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump job attempt rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("bump job attempt: %w", sentinel.ErrNotFound)
	}
	return nil
}

// ResetForRetry atomically claims a failed entry back to pending. Returns
// false when the entry is no longer failed (another dispatcher claimed it or
// it has since been sent), in which case the caller must not send.
func (s *PostgresStore) ResetForRetry(ctx context.Context, key string) (bool, error) {
	query := `
		UPDATE idempotency
		SET status = $2, updated_at = $3
		WHERE idempotency_key = $1 AND status = $4
	`
	result, err := s.db.ExecContext(ctx, query, key, string(models.JobStatusPending), s.clock(), string(models.JobStatusFailed))
	if err != nil {
		return false, fmt.Errorf("reset job for retry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reset job for retry rows affected: %w", err)
	}
	return rows > 0, nil
}

type jobRow interface {
	Scan(dest ...any) error
}

func scanJob(row jobRow) (*models.EmailJob, error) {
	var job models.EmailJob
	var status string
	if err := row.Scan(&job.SubscriberID, &job.IdempotencyKey, &status, &job.Attempts, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.Status = models.JobStatus(status)
	return &job, nil
}
