package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bulletin/pkg/platform/sentinel"
	"bulletin/pkg/platform/tx"
)

// PostgresStore persists confirmation tokens in PostgreSQL. The table is
// append-only: tokens are never invalidated after use or on reissue.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed token store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

// Insert stores a freshly issued token for a subscriber.
func (s *PostgresStore) Insert(ctx context.Context, token string, subscriberID uuid.UUID) error {
	query := `
		INSERT INTO subscription_tokens (token, subscriber_id)
		VALUES ($1, $2)
	`
	if _, err := s.q(ctx).ExecContext(ctx, query, token, subscriberID); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// FindSubscriberID resolves a token to its owning subscriber.
func (s *PostgresStore) FindSubscriberID(ctx context.Context, token string) (uuid.UUID, error) {
	var subscriberID uuid.UUID
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT subscriber_id FROM subscription_tokens WHERE token = $1`,
		token,
	).Scan(&subscriberID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("find token: %w", sentinel.ErrNotFound)
		}
		return uuid.Nil, fmt.Errorf("find token: %w", err)
	}
	return subscriberID, nil
}
