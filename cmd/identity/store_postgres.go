package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scribe/cmd/identity/ids"
	"scribe/cmd/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
// The pgx pool is owned by the caller; the store never closes it.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const userColumns = `id, email, name, email_verified, image, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.EmailVerified, &u.Image, &u.CreatedAt)
	return u, err
}

// CreateUser inserts an unverified user.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	in, err := prepareCreate(op, in)
	if err != nil {
		return User{}, err
	}
	id, err := ids.NewULID(in.Now)
	if err != nil {
		return User{}, err
	}

	u, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, email_verified, image, created_at)
		VALUES ($1, $2, $3, NULL, NULL, $4)
		RETURNING `+userColumns,
		id, in.Email, in.Name, in.Now,
	))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetByID loads a user by primary key.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetByID"

	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, invalid(op, "id is required")
	}
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetByEmail loads a user by normalized email.
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetByEmail"

	email = NormalizeEmail(email)
	if email == "" {
		return User{}, invalid(op, "email is required")
	}
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// MarkEmailVerified sets email_verified if it is still NULL.
func (s *PostgresStore) MarkEmailVerified(ctx context.Context, email string, at time.Time) (User, error) {
	const op = "identity.MarkEmailVerified"

	email = NormalizeEmail(email)
	if email == "" {
		return User{}, invalid(op, "email is required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	u, err := scanUser(s.pool.QueryRow(ctx, `
		UPDATE users
		   SET email_verified = COALESCE(email_verified, $2)
		 WHERE email = $1
		RETURNING `+userColumns,
		email, at,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpsertVerified creates the user or marks the existing one verified.
func (s *PostgresStore) UpsertVerified(ctx context.Context, in UpsertVerifiedInput) (User, error) {
	const op = "identity.UpsertVerified"

	in, err := prepareUpsert(op, in)
	if err != nil {
		return User{}, err
	}
	id, err := ids.NewULID(in.Now)
	if err != nil {
		return User{}, err
	}

	u, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, email_verified, image, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $4)
		ON CONFLICT (email) DO UPDATE SET
			email_verified = COALESCE(users.email_verified, EXCLUDED.email_verified),
			image          = COALESCE(users.image, EXCLUDED.image),
			name           = CASE WHEN users.name = '' THEN EXCLUDED.name ELSE users.name END
		RETURNING `+userColumns,
		id, in.Email, in.Name, in.Now, in.Image,
	))
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
