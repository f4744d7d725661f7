package verification

import (
	"context"
	"errors"
	"strings"
	"time"

	"scribe/cmd/internal/metrics"
	"scribe/cmd/security/token"
)

// maxTokenLen bounds presented tokens before hashing.
const maxTokenLen = 256

// Hasher turns a presented token into its storage key.
type Hasher interface {
	Hash(tok string) string
}

// Issued is the result of Issue. Token is the only copy of the plain value.
type Issued struct {
	Token      string
	Identifier string
	Purpose    Purpose
	Expires    time.Time
}

// Service issues and consumes verification tokens.
type Service struct {
	store   Store
	hasher  Hasher
	cfg     Config
	now     func() time.Time
	metrics *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service) error

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now == nil {
			return ErrInvalidInput
		}
		s.now = now
		return nil
	}
}

// WithMetrics records issue/consume outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) error {
		s.metrics = m
		return nil
	}
}

// NewService constructs a Service.
func NewService(store Store, hasher Hasher, cfg Config, opts ...Option) (*Service, error) {
	if store == nil || hasher == nil {
		return nil, ErrInvalidInput
	}
	if cfg.VerifyEmailTTL <= 0 || cfg.LoginTTL <= 0 {
		return nil, ErrConfig
	}
	if cfg.TokenBytes == 0 {
		cfg.TokenBytes = token.DefaultBytes
	}

	s := &Service{
		store:  store,
		hasher: hasher,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Issue creates a token for identifier. Login issuance invalidates every earlier
// login token for the identifier; verify-email tokens accumulate.
func (s *Service) Issue(ctx context.Context, identifier string, purpose Purpose) (Issued, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || !purpose.Valid() {
		return Issued{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Issued{}, err
	}

	plain, err := token.New(s.cfg.TokenBytes)
	if err != nil {
		return Issued{}, err
	}

	now := s.now()
	rec := Record{
		TokenHash:  s.hasher.Hash(plain),
		Identifier: identifier,
		Purpose:    purpose,
		Expires:    now.Add(s.cfg.TTL(purpose)),
		CreatedAt:  now,
	}

	if purpose == PurposeLogin {
		_, err = s.store.Replace(ctx, rec)
	} else {
		err = s.store.Insert(ctx, rec)
	}
	if err != nil {
		return Issued{}, err
	}

	s.metrics.TokenIssued(purpose.String())
	return Issued{Token: plain, Identifier: identifier, Purpose: purpose, Expires: rec.Expires}, nil
}

// Consume redeems tok for purpose and returns the bound identifier.
// The row is deleted before this returns, whether the token was valid or expired.
func (s *Service) Consume(ctx context.Context, tok string, purpose Purpose) (string, error) {
	if !purpose.Valid() {
		return "", ErrInvalidInput
	}
	tok = strings.TrimSpace(tok)
	if tok == "" || len(tok) > maxTokenLen {
		s.metrics.TokenConsumed(purpose.String(), "invalid")
		return "", ErrInvalidToken
	}

	rec, err := s.store.Take(ctx, s.hasher.Hash(tok), purpose)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.TokenConsumed(purpose.String(), "invalid")
			return "", ErrInvalidToken
		}
		s.metrics.TokenConsumed(purpose.String(), "error")
		return "", err
	}

	if !rec.Expires.After(s.now()) {
		s.metrics.TokenConsumed(purpose.String(), "expired")
		return "", ErrTokenExpired
	}

	s.metrics.TokenConsumed(purpose.String(), "ok")
	return rec.Identifier, nil
}

// Revoke deletes an issued token, e.g. when delivering it failed.
func (s *Service) Revoke(ctx context.Context, tok string) error {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return nil
	}
	return s.store.Delete(ctx, s.hasher.Hash(tok))
}

// PurgeExpired removes expired tokens that were never presented.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.TokensPurged(n)
	return n, nil
}
