package identity

import (
	"context"
	"time"
)

// User is scribe's account record.
type User struct {
	ID            string
	Email         string
	Name          string
	EmailVerified *time.Time
	Image         *string
	CreatedAt     time.Time
}

// Verified reports whether the email address has been confirmed.
func (u User) Verified() bool { return u.EmailVerified != nil }

// CreateUserInput describes a sign-up.
type CreateUserInput struct {
	Email string
	Name  string
	Now   time.Time
}

// UpsertVerifiedInput describes a provider-verified login (OAuth).
type UpsertVerifiedInput struct {
	Email string
	Name  string
	Image string
	Now   time.Time
}

// Store is the user persistence boundary.
type Store interface {
	// CreateUser inserts an unverified user. A taken email yields ConflictError{Field: "email"}.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// GetByID and GetByEmail return NotFoundError when absent.
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)

	// MarkEmailVerified stamps email_verified (first stamp wins) and returns the user.
	MarkEmailVerified(ctx context.Context, email string, at time.Time) (User, error)

	// UpsertVerified creates or verifies the user for a provider-confirmed email.
	// Existing name and image are kept when already set.
	UpsertVerified(ctx context.Context, in UpsertVerifiedInput) (User, error)
}

func prepareCreate(op string, in CreateUserInput) (CreateUserInput, error) {
	in.Email = NormalizeEmail(in.Email)
	if !ValidEmail(in.Email) {
		return in, invalid(op, "email is invalid")
	}
	in.Name = NormalizeName(in.Name)
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	return in, nil
}

func prepareUpsert(op string, in UpsertVerifiedInput) (UpsertVerifiedInput, error) {
	in.Email = NormalizeEmail(in.Email)
	if !ValidEmail(in.Email) {
		return in, invalid(op, "email is invalid")
	}
	in.Name = NormalizeName(in.Name)
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	return in, nil
}
