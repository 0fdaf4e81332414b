// README: Shared helpers for DB- and Redis-backed tests; both skip when their env var is unset.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"localpro/migrations"
)

// DB connects to LOCALPRO_TEST_DSN, applies the embedded migrations and truncates the given tables.
func DB(t *testing.T, truncate ...string) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("LOCALPRO_TEST_DSN")
	if dsn == "" {
		t.Skip("LOCALPRO_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Apply(ctx, db); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if len(truncate) > 0 {
		if _, err := db.Exec(ctx, "TRUNCATE TABLE "+strings.Join(truncate, ", ")+" CASCADE"); err != nil {
			t.Fatalf("truncate tables: %v", err)
		}
	}
	return db
}

// Redis connects to LOCALPRO_TEST_REDIS.
func Redis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("LOCALPRO_TEST_REDIS")
	if addr == "" {
		t.Skip("LOCALPRO_TEST_REDIS not set; skipping Redis-backed tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}
