package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airchart/internal/testsupport"
)

func writeCLIConfig(t *testing.T) (configPath, baseDir string) {
	t.Helper()
	baseDir = t.TempDir()
	configPath = filepath.Join(baseDir, "airchart.toml")
	content := `
[paths]
archive_dir = "` + filepath.Join(baseDir, "archive") + `"
data_dir = "` + filepath.Join(baseDir, "data") + `"
log_dir = "` + filepath.Join(baseDir, "logs") + `"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "archive"), 0o755); err != nil {
		t.Fatalf("mkdir archive: %v", err)
	}
	return configPath, baseDir
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error without --overwrite")
	}
	if _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite failed: %v", err)
	}
}

func TestConfigShowCommand(t *testing.T) {
	configPath, _ := writeCLIConfig(t)

	out, err := runCLI(t, configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "reach_weight") || !strings.Contains(out, "catalog.db") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRunPipelineAndChartTop(t *testing.T) {
	configPath, baseDir := writeCLIConfig(t)
	archive := filepath.Join(baseDir, "archive")
	testsupport.WriteReportFile(t, archive, "SMR", 14, 2024, []testsupport.ReportRow{
		{Artist: "Test Band", Title: "Anthem", Spins: 50, Reach: 4, Label: "Big Indie"},
		{Artist: "Other Band", Title: "B Side", Spins: 60},
	})

	out, err := runCLI(t, configPath, "run")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	for _, stage := range []string{"ingest:", "resolve:", "sync:", "aggregate:"} {
		if !strings.Contains(out, stage) {
			t.Fatalf("missing %q summary in output: %q", stage, out)
		}
	}

	top, err := runCLI(t, configPath, "chart", "top", "--limit", "5")
	if err != nil {
		t.Fatalf("chart top failed: %v\n%s", err, top)
	}
	if !strings.Contains(top, "Test Band") {
		t.Fatalf("expected Test Band on the chart: %q", top)
	}
	if !strings.Contains(top, "new") {
		t.Fatalf("first window entries must show as new: %q", top)
	}

	labels, err := runCLI(t, configPath, "chart", "top", "--labels")
	if err != nil {
		t.Fatalf("chart top --labels failed: %v\n%s", err, labels)
	}
	if !strings.Contains(labels, "Big Indie") {
		t.Fatalf("expected Big Indie on the label chart: %q", labels)
	}
}
