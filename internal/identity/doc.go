// Package identity resolves raw source strings from vendor reports into
// canonical artist and label entities.
//
// Resolution is two-phase: exact normalized lookup, then ghost creation on
// miss so aggregation never waits on curation. Periodic maintenance passes
// fold in what used to be one-off repair scripts: duplicate merging, label
// backfill from historical co-occurrence, and ghost reconciliation.
package identity
