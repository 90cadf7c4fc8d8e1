package testsupport

import (
	"testing"

	"reface/internal/config"
	"reface/internal/project"
)

// MustOpenStore opens a project.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *project.Store {
	t.Helper()

	store, err := project.Open(cfg)
	if err != nil {
		t.Fatalf("project.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
