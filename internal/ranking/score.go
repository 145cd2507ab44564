package ranking

// CompositeScore is the weekly popularity score for one entity:
// spins * (1 + reach * reachWeight). Reach rewards breadth of airplay on
// top of raw spin volume.
//
// The score is recomputed from staging aggregates at aggregation time so a
// weight change can be replayed over history without re-ingesting.
func CompositeScore(spins, reach int, reachWeight float64) float64 {
	return float64(spins) * (1 + float64(reach)*reachWeight)
}
