package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
	CREATE TABLE IF NOT EXISTS predictions (
		id         UUID PRIMARY KEY,
		user_id    TEXT NOT NULL,
		type       TEXT NOT NULL,
		input      JSONB NOT NULL,
		value      DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS predictions_user_created_idx
		ON predictions (user_id, created_at DESC);`

// PostgresStore implements Store on a predictions table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to dsn and creates the predictions table if it
// does not exist.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn cannot be empty")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create predictions table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Append(ctx context.Context, e Entry) error {
	if err := checkEntry(e); err != nil {
		return err
	}

	const query = `
		INSERT INTO predictions (id, user_id, type, input, value, created_at)
		VALUES (:id, :user_id, :type, :input, :value, :created_at)`

	if _, err := p.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

func (p *PostgresStore) Recent(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if err := checkUserID(userID); err != nil {
		return nil, err
	}

	const query = `
		SELECT id, user_id, type, input, value, created_at
		FROM predictions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	out := []Entry{}
	if err := p.db.SelectContext(ctx, &out, query, userID, clampLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	return out, nil
}

// Ping checks the database connection.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
