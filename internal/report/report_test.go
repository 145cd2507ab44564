package report_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"airchart/internal/report"
)

func TestParseFilename(t *testing.T) {
	cases := []struct {
		name string
		week int
		year int
		ok   bool
	}{
		{"SMR - 14-2024 Top 200.csv", 14, 2024, true},
		{"airplay 3-2023.csv", 3, 2023, true},
		{"/archive/path/SMR - 52-2025 Top 200.csv", 52, 2025, true},
		{"SMR - 60-2024 Top 200.csv", 0, 0, false},
		{"notes.csv", 0, 0, false},
	}
	for _, tc := range cases {
		week, year, err := report.ParseFilename(tc.name)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseFilename(%q) failed: %v", tc.name, err)
			}
			if week != tc.week || year != tc.year {
				t.Fatalf("ParseFilename(%q) = (%d, %d), want (%d, %d)", tc.name, week, year, tc.week, tc.year)
			}
			continue
		}
		if !errors.Is(err, report.ErrNoPeriod) {
			t.Fatalf("ParseFilename(%q) err = %v, want ErrNoPeriod", tc.name, err)
		}
	}
}

func TestReadFileMapsHeaderSynonyms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SMR - 14-2024 Top 200.csv")
	content := "Pos,Artist Name,Song,TW Spins,LW Spins,Station Count,Record Label\n" +
		"1,Test Band,Anthem,\"1,204\",980,44,Big Indie\n" +
		"2,Other Band,B Side,510,0,12,\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	file, err := report.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if file.Week != 14 || file.Year != 2024 {
		t.Fatalf("unexpected period: %d-%d", file.Week, file.Year)
	}
	if len(file.Rows) != 2 || file.Skipped != 0 {
		t.Fatalf("rows=%d skipped=%d, want 2/0", len(file.Rows), file.Skipped)
	}

	first := file.Rows[0]
	if first.Artist != "Test Band" || first.Title != "Anthem" || first.Label != "Big Indie" {
		t.Fatalf("unexpected first row: %#v", first)
	}
	if first.Spins != 1204 || first.PriorSpins != 980 || first.Reach != 44 {
		t.Fatalf("unexpected counts: %#v", first)
	}
	if file.Rows[1].Label != "" {
		t.Fatalf("expected empty label, got %q", file.Rows[1].Label)
	}
}

func TestReadFileSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SMR - 2-2024.csv")
	content := "Artist,Track,Spins\n" +
		"Good Band,Song,100\n" +
		",Missing Artist,50\n" +
		"No Spins,Song,\n" +
		"Negative,Song,-3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	file, err := report.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(file.Rows) != 1 {
		t.Fatalf("expected 1 usable row, got %d", len(file.Rows))
	}
	if file.Skipped != 3 {
		t.Fatalf("expected 3 skipped rows, got %d", file.Skipped)
	}
}

func TestReadFileRejectsMissingRequiredColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SMR - 2-2024.csv")
	if err := os.WriteFile(path, []byte("Artist,Spins\nBand,10\n"), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}
	if _, err := report.ReadFile(path); err == nil {
		t.Fatal("expected error for header without a track column")
	}
}
