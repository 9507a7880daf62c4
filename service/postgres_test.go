package service

import (
	"context"
	"os"
	"testing"

	"ridematch/config"
	"ridematch/pkg/logger"
	"ridematch/storage/postgres"
)

const truncateAll = "TRUNCATE TABLE payments, ride_rejections, rides, ride_requests, accounts RESTART IDENTITY CASCADE"

// newPostgresFixture connects to TEST_PG_DSN, applies migrations and empties
// every table. The database is wiped, so never point it at real data.
func newPostgresFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}

	ctx := context.Background()
	stg, err := postgres.New(ctx, config.Config{
		PostgresDSN:      dsn,
		PostgresMaxConns: 16,
		MigrationsPath:   "../migrations",
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(stg.Close)

	if _, err := stg.GetPool().Exec(ctx, truncateAll); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return newFixtureWith(t, stg)
}
