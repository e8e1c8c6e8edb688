// Package sqlitetest provides migrated in-memory SQLite databases for tests.
package sqlitetest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// DSN returns a fresh shared-cache in-memory database name with foreign
// keys enforced.
func DSN() string {
	return "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
}

// Open returns a migrated database and a manager bound to it. Both are
// released when the test ends.
func Open(t testing.TB, opts ...repomanager.Option) (*sql.DB, *repomanager.SQLRepositoryManager) {
	t.Helper()
	ctx := context.Background()

	db, err := repomanager.Open(ctx, "sqlite", DSN())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	m, err := repomanager.NewRepositoryManager("sqlite", opts...)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if err := m.RunMigrations(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, m
}
