package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Singleton container state
var (
	singletonOnce sync.Once
	singletonDSN  string
	singletonErr  error
)

// ensureSingleton lazily starts one PostgreSQL container per test binary.
func ensureSingleton() (string, error) {
	singletonOnce.Do(func() {
		ctx := context.Background()

		container, err := postgres.Run(ctx,
			"postgres:18-alpine",
			postgres.WithDatabase("postgres"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithEnv(map[string]string{
				"POSTGRES_INITDB_ARGS": "--auth-host=trust",
			}),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			singletonErr = fmt.Errorf("failed to start PostgreSQL container: %w", err)
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			_ = container.Terminate(ctx)
			singletonErr = fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
			return
		}
		// Container is not stored - ryuk will handle cleanup automatically
		singletonDSN = dsn
	})

	return singletonDSN, singletonErr
}

// Pool returns a connection pool to a fresh, empty database. The database is
// dropped when the test completes.
//
// The test is skipped under -short, or when no container runtime is
// available.
func Pool(tb testing.TB) *pgxpool.Pool {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping PostgreSQL test in short mode")
	}

	adminDSN, err := ensureSingleton()
	if err != nil {
		tb.Skipf("PostgreSQL unavailable: %v", err)
	}

	ctx := context.Background()
	dbName := uniqueDBName("sqlimport")
	require.NoError(tb, execAdmin(ctx, adminDSN, "CREATE DATABASE "+dbName), "failed to create test database")

	cfg, err := pgxpool.ParseConfig(adminDSN)
	require.NoError(tb, err)
	cfg.ConnConfig.Database = dbName

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(tb, err, "failed to connect to test database")
	require.NoError(tb, pool.Ping(ctx), "failed to ping test database")

	tb.Cleanup(func() {
		pool.Close()

		// Drop database in background
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = execAdmin(ctx, adminDSN, "DROP DATABASE IF EXISTS "+dbName+" WITH (FORCE)")
		}()
	})

	return pool
}

// uniqueDBName generates a unique database name with the given prefix.
func uniqueDBName(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(b))
}

func execAdmin(ctx context.Context, dsn, sql string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()

	_, err = conn.Exec(ctx, sql)
	return err
}
