// Package testdb provides a migrated PostgreSQL connection for integration tests.
//
// Tests using it are skipped unless TASKFLOW_TEST_DATABASE_URL or DATABASE_URL
// points at a disposable database.
package testdb

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
)

// Timeout bounds the setup and teardown operations performed by this package.
const Timeout = 30 * time.Second

// URL returns the database URL tests should use, or "" when none is configured.
func URL() string {
	if url := os.Getenv("TASKFLOW_TEST_DATABASE_URL"); url != "" {
		return url
	}
	return os.Getenv("DATABASE_URL")
}

// Open connects to the test database and applies every migration. It skips the
// test when no database is configured and closes the connection on cleanup.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	url := URL()
	if url == "" {
		t.Skip("TASKFLOW_TEST_DATABASE_URL not set, skipping database test")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	require.NoError(t, db.PingContext(ctx), "test database is unreachable")
	require.NoError(t, postgres.Migrate(ctx, db, postgres.MigrateUp, nil), "failed to migrate test database")

	return db
}

// WithTx runs fn inside a transaction that is always rolled back, so each test
// sees only its own writes.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		_ = tx.Rollback()
	}()

	fn(t, tx)
}
