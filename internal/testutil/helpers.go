// Package testutil holds shared helpers for integration tests.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
)

// TestPostgresDSN returns the integration database DSN, or "" when
// integration tests are disabled.
func TestPostgresDSN() string {
	return os.Getenv("REWARD_TEST_POSTGRES_DSN")
}

// RequireIntegration skips the test unless integration infrastructure
// is configured.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if TestPostgresDSN() == "" {
		t.Skip("set REWARD_TEST_POSTGRES_DSN to run integration tests")
	}
}

// SetupTestDB opens the integration database and registers cleanup
// that truncates the mutable tables.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := TestPostgresDSN()
	if dsn == "" {
		t.Skip("set REWARD_TEST_POSTGRES_DSN to run integration tests")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Skipf("test database unreachable: %v", err)
	}
	t.Cleanup(func() {
		for _, table := range []string{
			"reward_log", "processed_operations", "reward_snapshots",
			"reward_balances", "reward_flows", "reward_periods", "projection_watermark",
		} {
			db.Exec("TRUNCATE TABLE " + table)
		}
		db.Close()
	})
	return db
}
