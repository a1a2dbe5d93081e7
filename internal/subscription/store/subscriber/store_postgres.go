package subscriber

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"bulletin/internal/subscription/models"
	"bulletin/pkg/platform/sentinel"
	"bulletin/pkg/platform/tx"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// PostgresStore persists subscribers in PostgreSQL.
// This store is pure I/O—validation and lifecycle rules belong in the service.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed subscriber store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the context transaction when one is in flight, the pool otherwise.
func (s *PostgresStore) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

// Create inserts a pending subscriber. A duplicate email surfaces as
// sentinel.ErrConflict so the service can report it as a conflict rather than
// a generic store failure.
func (s *PostgresStore) Create(ctx context.Context, sub *models.Subscriber) error {
	query := `
		INSERT INTO subscriptions (id, name, email, status, subscribed_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		sub.ID,
		sub.Name.String(),
		sub.Email.String(),
		string(sub.Status),
		sub.SubscribedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("create subscriber: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create subscriber: %w", err)
	}
	return nil
}

// FindByID returns the raw stored subscriber row.
func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.SubscriberRecord, error) {
	query := `
		SELECT id, name, email, status, subscribed_at
		FROM subscriptions
		WHERE id = $1
	`
	record, err := scanSubscriber(s.q(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find subscriber: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find subscriber: %w", err)
	}
	return record, nil
}

// MarkConfirmed flips the subscriber to confirmed. Confirming an already
// confirmed subscriber is a no-op; an unknown id is ErrNotFound.
func (s *PostgresStore) MarkConfirmed(ctx context.Context, id uuid.UUID) error {
	result, err := s.q(ctx).ExecContext(ctx,
		`UPDATE subscriptions SET status = $2 WHERE id = $1`,
		id, string(models.SubscriberStatusConfirmed),
	)
	if err != nil {
		return fmt.Errorf("mark subscriber confirmed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark subscriber confirmed rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("mark subscriber confirmed: %w", sentinel.ErrNotFound)
	}
	return nil
}

// ListConfirmed returns every confirmed subscriber as raw rows. Callers
// re-validate name and email before use.
func (s *PostgresStore) ListConfirmed(ctx context.Context) ([]models.SubscriberRecord, error) {
	query := `
		SELECT id, name, email, status, subscribed_at
		FROM subscriptions
		WHERE status = $1
		ORDER BY subscribed_at
	`
	rows, err := s.q(ctx).QueryContext(ctx, query, string(models.SubscriberStatusConfirmed))
	if err != nil {
		return nil, fmt.Errorf("list confirmed subscribers: %w", err)
	}
	defer rows.Close()

	var records []models.SubscriberRecord
	for rows.Next() {
		record, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("list confirmed subscribers: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list confirmed subscribers: %w", err)
	}
	return records, nil
}

type subscriberRow interface {
	Scan(dest ...any) error
}

func scanSubscriber(row subscriberRow) (*models.SubscriberRecord, error) {
	var record models.SubscriberRecord
	var status string
	if err := row.Scan(&record.ID, &record.Name, &record.Email, &status, &record.SubscribedAt); err != nil {
		return nil, err
	}
	record.Status = models.SubscriberStatus(status)
	return &record, nil
}
