package session

import (
	"context"
	"testing"

	"scribe/cmd/identity"
	"scribe/cmd/internal/storage/pgtest"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestService_PostgresStore(t *testing.T) {
	pool := pgtest.Pool(t)

	users, err := identity.NewPostgresStore(pool)
	require.NoError(t, err)

	newUser := func(t *testing.T) string {
		u, err := users.CreateUser(context.Background(), identity.CreateUserInput{
			Email: "sess-" + ulid.Make().String() + "@example.com",
			Name:  "Session Test",
		})
		require.NoError(t, err)
		return u.ID
	}

	runServiceSuite(t, NewPostgresStore(pool), newUser)
}
