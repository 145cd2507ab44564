package chartstore

import "time"

// EntityType discriminates ranking rows between artists and labels.
type EntityType string

const (
	EntityArtist EntityType = "artist"
	EntityLabel  EntityType = "label"
)

// EntityKey identifies one scored entity across windows.
type EntityKey struct {
	Type EntityType
	ID   int64
}

// Window is one (interval, window_start) ranking bucket.
type Window struct {
	ID        int64
	Interval  string
	Start     time.Time
	End       time.Time
	Finalized bool
	CreatedAt time.Time
}

// Item is one ranked entity inside a window, unique per
// (window, entity_type, entity_id).
type Item struct {
	ID         int64
	WindowID   int64
	EntityType EntityType
	EntityID   int64
	Rank       int
	PrevRank   *int
	Score      float64
	Spins      int
	Reach      int
}

// Delta returns prev_rank - rank, or nil when the entity is newly charted.
func (i Item) Delta() *int {
	if i.PrevRank == nil {
		return nil
	}
	d := *i.PrevRank - i.Rank
	return &d
}

// Receipt is the audit record of the inputs used to score one artist in one
// window.
type Receipt struct {
	ID         string
	WindowID   int64
	ArtistID   int64
	Spins      int
	Reach      int
	Score      float64
	SourceRows int
	CreatedAt  time.Time
}

// Ref is a mirrored canonical-entity row kept so ranking-item joins stay
// valid without reaching into the system of record.
type Ref struct {
	ID     int64
	Name   string
	Slug   string
	Status string
}

// WindowWrite carries everything one aggregation pass persists for a window.
type WindowWrite struct {
	Interval string
	Start    time.Time
	End      time.Time
	Artists  []Item
	Labels   []Item
	Receipts []Receipt
}
