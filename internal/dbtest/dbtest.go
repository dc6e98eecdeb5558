// Package dbtest opens a migrated in-memory database for package tests.
package dbtest

import (
	"testing"

	"github.com/glebarez/sqlite"

	"polymarket-ingest/internal/config"
	"polymarket-ingest/internal/db"
)

// Open returns a fresh schema. A single connection keeps every statement on
// the same in-memory database.
func Open(t testing.TB) *db.DB {
	t.Helper()
	conn, err := db.OpenDialector(sqlite.Open(":memory:"), config.DBConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}
