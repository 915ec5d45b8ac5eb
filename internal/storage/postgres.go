package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockroom/internal/platform/db"
)

const (
	selectDocument = `SELECT body FROM documents WHERE key = $1`
	lockKey        = `SELECT pg_advisory_xact_lock(hashtext($1))`
	upsertDocument = `INSERT INTO documents (key, body, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`
)

// Postgres stores documents in the documents table created by
// db.Migrate.
type Postgres struct {
	pool  *pgxpool.Pool
	owned bool
}

// NewPostgres wraps a pool. Close leaves the pool open.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := p.pool.QueryRow(ctx, selectDocument, key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: select %s: %w", key, err)
	}
	return body, nil
}

func (p *Postgres) Put(ctx context.Context, key string, data []byte) error {
	if _, err := p.pool.Exec(ctx, upsertDocument, key, data); err != nil {
		return fmt.Errorf("storage: upsert %s: %w", key, err)
	}
	return nil
}

// Update holds a transaction-scoped advisory lock on key while fn runs, so
// the first write of a document is serialised too.
func (p *Postgres) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return db.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockKey, key); err != nil {
			return fmt.Errorf("storage: lock %s: %w", key, err)
		}
		var current []byte
		err := tx.QueryRow(ctx, selectDocument, key).Scan(&current)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("storage: select %s: %w", key, err)
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, upsertDocument, key, next); err != nil {
			return fmt.Errorf("storage: upsert %s: %w", key, err)
		}
		return nil
	})
}

func (p *Postgres) Close() error {
	if p.owned {
		p.pool.Close()
	}
	return nil
}
