package catalog

import "time"

// EntityStatus is the lifecycle state of a canonical artist or label.
type EntityStatus string

const (
	// StatusActive marks a confirmed canonical entity.
	StatusActive EntityStatus = "active"
	// StatusGhost marks a placeholder created when resolution found no
	// match. Ghosts are enriched or merged, never silently discarded.
	StatusGhost EntityStatus = "ghost"
)

// RowStatus is the resolution state of a staging row.
type RowStatus string

const (
	// RowPendingMapping marks a staging row not yet linked to a canonical
	// artist. Pending rows are excluded from aggregation.
	RowPendingMapping RowStatus = "pending_mapping"
	// RowResolved marks a staging row linked to a canonical artist.
	RowResolved RowStatus = "resolved"
)

// Ingestion records one ingested report file with its provenance.
type Ingestion struct {
	ID           string
	SourceFile   string
	ReportWeek   int
	ReportYear   int
	RowCount     int
	SkippedCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RawRow is one append-only staging row: an (artist, track) pair from a
// vendor report, unique per (ingestion, artist, title).
type RawRow struct {
	ID           int64
	IngestionID  string
	ArtistRaw    string
	TitleRaw     string
	LabelRaw     string
	Spins        int
	PriorSpins   int
	Reach        int
	RankPosition int
	Score        float64
	Status       RowStatus
	ArtistID     *int64
	LabelID      *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Artist is a canonical artist record.
type Artist struct {
	ID             int64
	Name           string
	NormalizedName string
	Slug           string
	Status         EntityStatus
	LabelID        *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Label is a canonical label record.
type Label struct {
	ID             int64
	Name           string
	NormalizedName string
	Slug           string
	Status         EntityStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ReportWeek identifies one weekly reporting period present in the archive.
type ReportWeek struct {
	Year int
	Week int
}

// ArtistAggregate is the per-artist rollup of resolved staging rows inside
// one set of ingestions.
type ArtistAggregate struct {
	ArtistID int64
	LabelID  *int64
	Spins    int
	Reach    int
	Rows     int
}
