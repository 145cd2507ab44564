package testsupport

import (
	"testing"

	"airchart/internal/catalog"
	"airchart/internal/chartstore"
	"airchart/internal/config"
)

// MustOpenCatalog opens the system-of-record store for tests and registers
// cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg.CatalogDBPath())
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenCharts opens the derived ranking store for tests and registers
// cleanup.
func MustOpenCharts(t testing.TB, cfg *config.Config) *chartstore.Store {
	t.Helper()

	store, err := chartstore.Open(cfg.ChartDBPath())
	if err != nil {
		t.Fatalf("chartstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
