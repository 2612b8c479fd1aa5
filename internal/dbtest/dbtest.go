// Package dbtest opens migrated SQLite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Simplici0/recipecost/internal/db"
	"github.com/Simplici0/recipecost/internal/migrations"
)

// Open returns a freshly migrated database in t's temp dir, closed on cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "recipecost-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(context.Background(), database, nil); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}
