package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"scribe/cmd/internal/metrics"
	"scribe/cmd/security/token"
)

const maxTokenLen = 256

// Hasher turns a session token into its storage key.
type Hasher interface {
	Hash(tok string) string
}

// Issued is the result of Create. Token goes to the client and nowhere else.
type Issued struct {
	Token   string
	UserID  string
	Expires time.Time
}

// Service implements session creation, lookup and destruction.
type Service struct {
	cfg     Config
	store   Store
	hasher  Hasher
	now     func() time.Time
	metrics *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMetrics records session events.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService constructs a Service.
func NewService(cfg Config, store Store, hasher Hasher, opts ...Option) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.TokenBytes == 0 {
		cfg.TokenBytes = token.DefaultBytes
	}
	s := &Service{
		cfg:    cfg,
		store:  store,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// TTL returns the fixed session lifetime (used for cookie Max-Age).
func (s *Service) TTL() time.Duration { return s.cfg.TTL }

// Create starts a session for userID.
func (s *Service) Create(ctx context.Context, userID string) (Issued, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Issued{}, ErrInvalidInput
	}

	plain, err := token.New(s.cfg.TokenBytes)
	if err != nil {
		return Issued{}, err
	}

	now := s.now()
	row := Row{
		TokenHash: s.hasher.Hash(plain),
		UserID:    userID,
		Expires:   now.Add(s.cfg.TTL),
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, row); err != nil {
		return Issued{}, err
	}

	s.metrics.SessionEvent("created", 1)
	return Issued{Token: plain, UserID: userID, Expires: row.Expires}, nil
}

// Get resolves a session token. Absent, malformed and expired tokens all yield (nil, nil);
// an error means the store itself failed.
func (s *Service) Get(ctx context.Context, tok string) (*Session, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" || len(tok) > maxTokenLen {
		return nil, nil
	}

	now := s.now()
	row, err := s.store.Get(ctx, s.hasher.Hash(tok), now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !row.Expires.After(now) {
		return nil, nil
	}

	return &Session{UserID: row.UserID, Expires: row.Expires, CreatedAt: row.CreatedAt}, nil
}

// Destroy deletes a session. Destroying an unknown session is not an error.
func (s *Service) Destroy(ctx context.Context, tok string) error {
	tok = strings.TrimSpace(tok)
	if tok == "" || len(tok) > maxTokenLen {
		return nil
	}
	if err := s.store.Delete(ctx, s.hasher.Hash(tok)); err != nil {
		return err
	}
	s.metrics.SessionEvent("destroyed", 1)
	return nil
}

// PurgeExpired removes expired rows.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.metrics.SessionEvent("purged", n)
	return n, nil
}
