package testsupport

import (
	"testing"

	"movup/internal/config"
	"movup/internal/store"
)

// MustOpenStore opens the SQLite backend for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.SQLiteStore {
	t.Helper()

	s, err := store.OpenSQLite(cfg)
	if err != nil {
		t.Fatalf("store.OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}
