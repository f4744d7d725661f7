package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"scribe/cmd/identity/ids"
)

// MemoryStore is an in-process Store used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]*User
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]*User),
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	in, err := prepareCreate(op, in)
	if err != nil {
		return User{}, err
	}
	id, err := ids.NewULID(in.Now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[in.Email]; ok {
		return User{}, ConflictError{Op: op, Field: "email"}
	}
	u := &User{ID: id, Email: in.Email, Name: in.Name, CreatedAt: in.Now}
	s.byID[id] = u
	s.byEmail[in.Email] = u
	return cloneUser(u), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, invalid(op, "id is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetByEmail"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, invalid(op, "email is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[email]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) MarkEmailVerified(ctx context.Context, email string, at time.Time) (User, error) {
	const op = "identity.MarkEmailVerified"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	email = NormalizeEmail(email)
	if email == "" {
		return User{}, invalid(op, "email is required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[email]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if u.EmailVerified == nil {
		u.EmailVerified = &at
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) UpsertVerified(ctx context.Context, in UpsertVerifiedInput) (User, error) {
	const op = "identity.UpsertVerified"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	in, err := prepareUpsert(op, in)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[in.Email]
	if !ok {
		id, err := ids.NewULID(in.Now)
		if err != nil {
			return User{}, err
		}
		u = &User{ID: id, Email: in.Email, Name: in.Name, CreatedAt: in.Now}
		s.byID[id] = u
		s.byEmail[in.Email] = u
	}
	if u.EmailVerified == nil {
		at := in.Now
		u.EmailVerified = &at
	}
	if u.Image == nil && in.Image != "" {
		img := in.Image
		u.Image = &img
	}
	if u.Name == "" {
		u.Name = in.Name
	}
	return cloneUser(u), nil
}

func cloneUser(u *User) User {
	out := *u
	if u.EmailVerified != nil {
		t := *u.EmailVerified
		out.EmailVerified = &t
	}
	if u.Image != nil {
		img := *u.Image
		out.Image = &img
	}
	return out
}
