// Package ranking turns resolved staging rows into weekly popularity
// rankings: per-artist composite scores, label rollups, dense ranks, rank
// deltas against the prior window, and a fairness receipt per scored artist.
package ranking
