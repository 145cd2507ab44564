package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ReportRow is one line of a generated vendor report file.
type ReportRow struct {
	Artist string
	Title  string
	Spins  int
	Prior  int
	Reach  int
	Label  string
}

// WriteReportFile writes a CSV airplay report into dir using the vendor
// naming convention ("<source> - <week>-<year> <suffix>.csv") and returns
// the file path.
func WriteReportFile(t testing.TB, dir, source string, week, year int, rows []ReportRow) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}

	var sb strings.Builder
	sb.WriteString("Rank,Artist,Track,Spins TW,Spins LW,Stations,Label\n")
	for i, row := range rows {
		fmt.Fprintf(&sb, "%d,%s,%s,%d,%d,%d,%s\n",
			i+1, row.Artist, row.Title, row.Spins, row.Prior, row.Reach, row.Label)
	}

	name := fmt.Sprintf("%s - %d-%d Top 200.csv", source, week, year)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
