package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scribe/cmd/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over the verification_tokens table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed token store. The caller owns the pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("verification: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const insertToken = `
	INSERT INTO verification_tokens (token_hash, identifier, purpose, expires, created_at)
	VALUES ($1, $2, $3, $4, $5)`

func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, insertToken,
		rec.TokenHash, rec.Identifier, string(rec.Purpose), rec.Expires, rec.CreatedAt)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("verification: insert: %w", err)
	}
	return nil
}

// Replace serializes issuers for one identifier with a transaction-scoped advisory lock,
// so two concurrent logins cannot both leave a live token behind.
func (s *PostgresStore) Replace(ctx context.Context, rec Record) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("verification: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, rec.Identifier); err != nil {
		return 0, fmt.Errorf("verification: lock: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM verification_tokens WHERE identifier = $1 AND purpose = $2`,
		rec.Identifier, string(rec.Purpose))
	if err != nil {
		return 0, fmt.Errorf("verification: delete prior: %w", err)
	}

	if _, err := tx.Exec(ctx, insertToken,
		rec.TokenHash, rec.Identifier, string(rec.Purpose), rec.Expires, rec.CreatedAt); err != nil {
		if storage.IsUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("verification: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("verification: commit: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Take is a single DELETE ... RETURNING; Postgres row locking makes it the single-winner gate.
func (s *PostgresStore) Take(ctx context.Context, tokenHash string, purpose Purpose) (Record, error) {
	rec := Record{TokenHash: tokenHash, Purpose: purpose}
	err := s.pool.QueryRow(ctx, `
		DELETE FROM verification_tokens
		 WHERE token_hash = $1 AND purpose = $2
		RETURNING identifier, expires, created_at`,
		tokenHash, string(purpose),
	).Scan(&rec.Identifier, &rec.Expires, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("verification: take: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, tokenHash string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM verification_tokens WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("verification: delete: %w", err)
	}
	return nil
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM verification_tokens WHERE expires <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("verification: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}
