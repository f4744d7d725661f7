// Package pgtest starts a throwaway Postgres for store integration tests.
//
// Tests are skipped under -short or when no container runtime is reachable.
// SCRIBE_TEST_DATABASE_URL points the helpers at an existing database instead.
package pgtest

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"scribe/cmd/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const image = "postgres:16-alpine"

var (
	once     sync.Once
	sharedDS string
	startErr error
)

// Pool returns a migrated pool. It is closed when the test ends.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres integration test skipped in -short mode")
	}

	dsn := strings.TrimSpace(os.Getenv("SCRIBE_TEST_DATABASE_URL"))
	if dsn == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		once.Do(func() { sharedDS, startErr = startContainer() })
		if startErr != nil {
			t.Skipf("postgres container unavailable: %v", startErr)
		}
		dsn = sharedDS
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	db := storage.OpenSQL(pool)
	if err := storage.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return pool
}

func startContainer() (string, error) {
	ctx := context.Background()

	c, err := postgres.Run(ctx, image,
		postgres.WithDatabase("scribe"),
		postgres.WithUsername("scribe"),
		postgres.WithPassword("scribe"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", err
	}

	return c.ConnectionString(ctx, "sslmode=disable")
}
