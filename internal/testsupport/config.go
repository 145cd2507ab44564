package testsupport

import (
	"path/filepath"
	"testing"

	"airchart/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Strict sync is enabled so mirror drift fails loudly in tests.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ArchiveDir = filepath.Join(base, "archive")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Sync.Strict = true

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithReachWeight overrides the composite-score reach weight.
func WithReachWeight(weight float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Scoring.ReachWeight = weight
	}
}

// WithLenientSync disables strict mirror integrity checking.
func WithLenientSync() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sync.Strict = false
	}
}
