// Package testutil provides fixtures shared by package tests: labeled
// corpora, settings and an in-memory correction log.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/kwisatz/internal/storage"
)

// SetupTestDB creates a migrated in-memory correction log that is closed
// when the test ends.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return store
}
