package testsupport

import (
	"context"
	"testing"

	"oepma/internal/config"
	"oepma/internal/repository"
)

// MustOpenStore opens the repository configured in cfg and closes it when
// the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *repository.Store {
	t.Helper()
	store, err := repository.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("repository.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
