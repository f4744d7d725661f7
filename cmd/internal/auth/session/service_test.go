package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"scribe/cmd/security/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestService(t *testing.T, st Store) (*Service, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Now().UTC().Truncate(time.Microsecond)}
	hasher, err := token.NewHasher(strings.Repeat("s", 32))
	require.NoError(t, err)
	return NewService(DefaultConfig(), st, hasher, WithClock(clock.Now)), clock
}

// runServiceSuite checks the session lifecycle against any Store.
// newUser returns an id the store will accept as a user_id.
func runServiceSuite(t *testing.T, st Store, newUser func(t *testing.T) string) {
	ctx := context.Background()

	t.Run("create then get", func(t *testing.T) {
		svc, clock := newTestService(t, st)
		uid := newUser(t)

		iss, err := svc.Create(ctx, uid)
		require.NoError(t, err)
		assert.Len(t, iss.Token, 64)
		assert.True(t, iss.Expires.Equal(clock.Now().Add(30*24*time.Hour)))

		sess, err := svc.Get(ctx, iss.Token)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, uid, sess.UserID)
	})

	t.Run("unknown and blank tokens are unauthenticated", func(t *testing.T) {
		svc, _ := newTestService(t, st)
		for _, tok := range []string{"", "   ", "deadbeef", strings.Repeat("x", maxTokenLen+1)} {
			sess, err := svc.Get(ctx, tok)
			require.NoError(t, err)
			assert.Nil(t, sess)
		}
	})

	t.Run("expired session is unauthenticated", func(t *testing.T) {
		svc, clock := newTestService(t, st)
		iss, err := svc.Create(ctx, newUser(t))
		require.NoError(t, err)

		clock.Advance(30*24*time.Hour - time.Second)
		sess, err := svc.Get(ctx, iss.Token)
		require.NoError(t, err)
		require.NotNil(t, sess)

		clock.Advance(time.Second)
		sess, err = svc.Get(ctx, iss.Token)
		require.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("no sliding expiry", func(t *testing.T) {
		svc, clock := newTestService(t, st)
		iss, err := svc.Create(ctx, newUser(t))
		require.NoError(t, err)

		clock.Advance(20 * 24 * time.Hour)
		sess, err := svc.Get(ctx, iss.Token)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.True(t, sess.Expires.Equal(iss.Expires))
	})

	t.Run("destroy is idempotent", func(t *testing.T) {
		svc, _ := newTestService(t, st)
		iss, err := svc.Create(ctx, newUser(t))
		require.NoError(t, err)

		require.NoError(t, svc.Destroy(ctx, iss.Token))
		require.NoError(t, svc.Destroy(ctx, iss.Token))
		require.NoError(t, svc.Destroy(ctx, ""))

		sess, err := svc.Get(ctx, iss.Token)
		require.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("purge drops expired rows only", func(t *testing.T) {
		svc, clock := newTestService(t, st)
		old, err := svc.Create(ctx, newUser(t))
		require.NoError(t, err)

		clock.Advance(29 * 24 * time.Hour)
		fresh, err := svc.Create(ctx, newUser(t))
		require.NoError(t, err)

		clock.Advance(2 * 24 * time.Hour)
		n, err := svc.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		sess, err := svc.Get(ctx, fresh.Token)
		require.NoError(t, err)
		assert.NotNil(t, sess)

		sess, err = svc.Get(ctx, old.Token)
		require.NoError(t, err)
		assert.Nil(t, sess)
	})
}

func TestService_MemoryStore(t *testing.T) {
	runServiceSuite(t, NewMemoryStore(), func(*testing.T) string { return "user-1" })
}

func TestService_CreateRequiresUser(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, NewMemoryStore())
	_, err := svc.Create(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

type failingStore struct{ *MemoryStore }

func (failingStore) Get(context.Context, string, time.Time) (Row, error) {
	return Row{}, errors.New("db down")
}

func TestService_GetSurfacesStoreFailure(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, failingStore{NewMemoryStore()})
	sess, err := svc.Get(context.Background(), strings.Repeat("a", 64))
	assert.Error(t, err)
	assert.Nil(t, sess)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SCRIBE_SESSION_TTL", "72h")
	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, cfg.TTL)
	assert.Equal(t, token.DefaultBytes, cfg.TokenBytes)

	t.Setenv("SCRIBE_SESSION_TTL", "soon")
	_, err = LoadConfigFromEnv()
	assert.ErrorIs(t, err, ErrConfig)

	t.Setenv("SCRIBE_SESSION_TTL", "")
	t.Setenv("SCRIBE_SESSION_TOKEN_BYTES", "8")
	_, err = LoadConfigFromEnv()
	assert.ErrorIs(t, err, ErrConfig)
}
