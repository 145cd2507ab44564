// Package report parses vendor airplay export files.
//
// Exports are CSV with a header whose column order varies between vendors;
// columns are located by name with a synonym table. Filenames follow
// "<report> - <week>-<year> Top 200.csv" and carry the reporting period.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Row is one normalized (artist, track) pair from a vendor export.
type Row struct {
	Artist     string
	Title      string
	Label      string
	Spins      int
	PriorSpins int
	Reach      int
	Position   int
}

// File is one parsed vendor export.
type File struct {
	Path       string
	SourceName string
	Week       int
	Year       int
	Rows       []Row
	Skipped    int
}

// ErrNoPeriod indicates a filename that does not encode a report week/year.
var ErrNoPeriod = errors.New("filename does not encode report week/year")

var filenamePeriod = regexp.MustCompile(`(\d{1,2})-(\d{4})`)

// ParseFilename extracts the report week and year encoded in an export
// filename.
func ParseFilename(name string) (week, year int, err error) {
	match := filenamePeriod.FindStringSubmatch(filepath.Base(name))
	if match == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrNoPeriod, name)
	}
	week, _ = strconv.Atoi(match[1])
	year, _ = strconv.Atoi(match[2])
	if week < 1 || week > 53 {
		return 0, 0, fmt.Errorf("%w: week %d out of range in %q", ErrNoPeriod, week, name)
	}
	if year < 1900 || year > 9999 {
		return 0, 0, fmt.Errorf("%w: year %d out of range in %q", ErrNoPeriod, year, name)
	}
	return week, year, nil
}

// columns maps logical fields to header indexes; -1 means absent.
type columns struct {
	artist   int
	title    int
	spins    int
	prior    int
	reach    int
	label    int
	position int
}

var headerSynonyms = map[string][]string{
	"artist":   {"artist", "artist name"},
	"title":    {"track", "title", "track title", "song"},
	"spins":    {"spins", "spins tw", "tw spins", "current spins", "tw"},
	"prior":    {"spins lw", "lw spins", "prior spins", "last week spins", "lw"},
	"reach":    {"reach", "stations", "station count"},
	"label":    {"label", "record label"},
	"position": {"rank", "position", "pos", "chart position"},
}

func mapHeader(header []string) (columns, error) {
	cols := columns{artist: -1, title: -1, spins: -1, prior: -1, reach: -1, label: -1, position: -1}
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}
	find := func(field string) int {
		for _, synonym := range headerSynonyms[field] {
			if i, ok := index[synonym]; ok {
				return i
			}
		}
		return -1
	}

	cols.artist = find("artist")
	cols.title = find("title")
	cols.spins = find("spins")
	cols.prior = find("prior")
	cols.reach = find("reach")
	cols.label = find("label")
	cols.position = find("position")

	var missing []string
	if cols.artist < 0 {
		missing = append(missing, "artist")
	}
	if cols.title < 0 {
		missing = append(missing, "track")
	}
	if cols.spins < 0 {
		missing = append(missing, "spins")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("header missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// ReadFile parses one export. Malformed rows are skipped and counted; a
// missing or unusable header is fatal for the file.
func ReadFile(path string) (*File, error) {
	week, year, err := ParseFilename(path)
	if err != nil {
		return nil, err
	}

	handle, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer handle.Close()

	parsed, err := parse(handle)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	parsed.Path = path
	parsed.SourceName = filepath.Base(path)
	parsed.Week = week
	parsed.Year = year
	return parsed, nil
}

func parse(r io.Reader) (*File, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	file := &File{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			file.Skipped++
			continue
		}

		row, ok := parseRecord(record, cols)
		if !ok {
			file.Skipped++
			continue
		}
		file.Rows = append(file.Rows, row)
	}
	return file, nil
}

func parseRecord(record []string, cols columns) (Row, bool) {
	field := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	row := Row{
		Artist: field(cols.artist),
		Title:  field(cols.title),
		Label:  field(cols.label),
	}
	if row.Artist == "" || row.Title == "" {
		return Row{}, false
	}

	spins, err := parseCount(field(cols.spins))
	if err != nil {
		return Row{}, false
	}
	row.Spins = spins

	// Optional numeric fields default to zero when absent or unparseable.
	row.PriorSpins, _ = parseCount(field(cols.prior))
	row.Reach, _ = parseCount(field(cols.reach))
	row.Position, _ = parseCount(field(cols.position))
	return row, true
}

func parseCount(value string) (int, error) {
	if value == "" {
		return 0, errors.New("empty")
	}
	cleaned := strings.ReplaceAll(value, ",", "")
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}
