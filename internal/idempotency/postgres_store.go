package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists records in a PostgreSQL table.
type PostgresStore struct {
	Now func() time.Time

	pool *pgxpool.Pool
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS vesting_write_records (
    key TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    handle_id TEXT NOT NULL DEFAULT '',
    status_code INT NOT NULL,
    body BYTEA NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS vesting_write_records_expires_idx
    ON vesting_write_records (expires_at);
`

// NewPostgresStore connects using dsn and ensures the table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Get(ctx context.Context, key string) (*Record, error) {
	row := p.pool.QueryRow(ctx, `
SELECT kind, handle_id, status_code, body, created_at, expires_at
FROM vesting_write_records
WHERE key = $1
`, key)

	var rec Record
	if err := row.Scan(&rec.Kind, &rec.HandleID, &rec.StatusCode, &rec.Body, &rec.CreatedAt, &rec.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if rec.expired(clock(p.Now).now()) {
		if _, err := p.pool.Exec(ctx, `DELETE FROM vesting_write_records WHERE key = $1`, key); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &rec, nil
}

func (p *PostgresStore) Save(ctx context.Context, key string, record Record) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO vesting_write_records (key, kind, handle_id, status_code, body, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (key) DO UPDATE
SET kind = EXCLUDED.kind,
    handle_id = EXCLUDED.handle_id,
    status_code = EXCLUDED.status_code,
    body = EXCLUDED.body,
    created_at = EXCLUDED.created_at,
    expires_at = EXCLUDED.expires_at
`, key, record.Kind, record.HandleID, record.StatusCode, record.Body, record.CreatedAt, record.ExpiresAt)
	return err
}
