package ranking

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"airchart/internal/catalog"
	"airchart/internal/chartstore"
)

// WeekStart returns the Monday 00:00 UTC of an ISO week.
func WeekStart(year, week int) time.Time {
	// January 4th always falls in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	week1Monday := jan4.AddDate(0, 0, 1-weekday)
	return week1Monday.AddDate(0, 0, (week-1)*7)
}

// WindowInput is everything the pure window builder needs: the window
// bounds, the resolved per-artist aggregates, and the previous window's
// rank map threaded through as an explicit accumulator.
type WindowInput struct {
	Interval    string
	Start       time.Time
	End         time.Time
	Aggregates  []catalog.ArtistAggregate
	Prev        map[chartstore.EntityKey]int
	ReachWeight float64
}

// BuildWindow computes the full ranking content of one window and the rank
// map to carry forward. It touches no storage, so resumed and (potentially)
// parallel runs stay correct as long as Prev is seeded from storage.
//
// Ordering is score descending with ascending canonical id breaking exact
// ties, so replays are deterministic. Ranks are dense 1..N.
func BuildWindow(in WindowInput) (chartstore.WindowWrite, map[chartstore.EntityKey]int) {
	write := chartstore.WindowWrite{
		Interval: in.Interval,
		Start:    in.Start,
		End:      in.End,
	}

	type labelAccum struct {
		score float64
		spins int
		reach int
	}
	labelScores := make(map[int64]*labelAccum)

	artists := make([]chartstore.Item, 0, len(in.Aggregates))
	for _, agg := range in.Aggregates {
		score := CompositeScore(agg.Spins, agg.Reach, in.ReachWeight)
		artists = append(artists, chartstore.Item{
			EntityType: chartstore.EntityArtist,
			EntityID:   agg.ArtistID,
			Score:      score,
			Spins:      agg.Spins,
			Reach:      agg.Reach,
		})
		write.Receipts = append(write.Receipts, chartstore.Receipt{
			ID:         uuid.NewString(),
			ArtistID:   agg.ArtistID,
			Spins:      agg.Spins,
			Reach:      agg.Reach,
			Score:      score,
			SourceRows: agg.Rows,
		})
		if agg.LabelID != nil {
			accum := labelScores[*agg.LabelID]
			if accum == nil {
				accum = &labelAccum{}
				labelScores[*agg.LabelID] = accum
			}
			accum.score += score
			accum.spins += agg.Spins
			if agg.Reach > accum.reach {
				accum.reach = agg.Reach
			}
		}
	}

	labels := make([]chartstore.Item, 0, len(labelScores))
	for labelID, accum := range labelScores {
		labels = append(labels, chartstore.Item{
			EntityType: chartstore.EntityLabel,
			EntityID:   labelID,
			Score:      accum.score,
			Spins:      accum.spins,
			Reach:      accum.reach,
		})
	}

	next := make(map[chartstore.EntityKey]int, len(artists)+len(labels))
	write.Artists = rankItems(artists, in.Prev, next)
	write.Labels = rankItems(labels, in.Prev, next)
	return write, next
}

func rankItems(items []chartstore.Item, prev, next map[chartstore.EntityKey]int) []chartstore.Item {
	sort.Slice(items, func(a, b int) bool {
		if items[a].Score != items[b].Score {
			return items[a].Score > items[b].Score
		}
		return items[a].EntityID < items[b].EntityID
	})
	for i := range items {
		items[i].Rank = i + 1
		key := chartstore.EntityKey{Type: items[i].EntityType, ID: items[i].EntityID}
		if prevRank, ok := prev[key]; ok {
			rank := prevRank
			items[i].PrevRank = &rank
		}
		next[key] = items[i].Rank
	}
	return items
}
