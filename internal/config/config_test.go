package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airchart/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Scoring.ReachWeight != 0.25 {
		t.Fatalf("unexpected default reach weight %v", cfg.Scoring.ReachWeight)
	}
	if cfg.Scoring.Interval != "weekly" {
		t.Fatalf("unexpected default interval %q", cfg.Scoring.Interval)
	}
	if cfg.Anchor.Enabled {
		t.Fatal("anchoring must be opt-in")
	}
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "airchart.toml")
	content := `
[paths]
archive_dir = "` + filepath.Join(dir, "archive") + `"
data_dir = "` + filepath.Join(dir, "data") + `"

[scoring]
reach_weight = 0.5

[sync]
strict = true

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Scoring.ReachWeight != 0.5 {
		t.Fatalf("file value not applied: %v", cfg.Scoring.ReachWeight)
	}
	if !cfg.Sync.Strict {
		t.Fatal("sync.strict not applied")
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging section not applied: %#v", cfg.Logging)
	}
	// Unset fields keep their defaults.
	if cfg.Scoring.Interval != "weekly" {
		t.Fatalf("default interval lost: %q", cfg.Scoring.Interval)
	}
	if !filepath.IsAbs(cfg.Paths.LogDir) {
		t.Fatalf("paths must be normalized to absolute: %q", cfg.Paths.LogDir)
	}
	if cfg.CatalogDBPath() != filepath.Join(dir, "data", "catalog.db") {
		t.Fatalf("unexpected catalog path %q", cfg.CatalogDBPath())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "bad interval",
			content: "[scoring]\ninterval = \"daily\"\n",
			wantErr: "scoring.interval",
		},
		{
			name:    "negative reach weight",
			content: "[scoring]\nreach_weight = -1.0\n",
			wantErr: "reach_weight",
		},
		{
			name:    "bad log format",
			content: "[logging]\nformat = \"xml\"\n",
			wantErr: "logging.format",
		},
		{
			name:    "anchor without url",
			content: "[anchor]\nenabled = true\n",
			wantErr: "anchor.url",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "airchart.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestEnsureDirectoriesCreatesAllPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ArchiveDir = filepath.Join(dir, "archive")
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, path := range []string{cfg.Paths.ArchiveDir, cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("expected directory %q: %v", path, err)
		}
		if !info.IsDir() {
			t.Fatalf("%q is not a directory", path)
		}
	}
}

func TestLoadMissingExplicitPathUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatalf("%q should not exist", resolved)
	}
	if cfg.Scoring.ReachWeight != 0.25 {
		t.Fatalf("defaults not used: %v", cfg.Scoring.ReachWeight)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config must load cleanly: %v", err)
	}
}
