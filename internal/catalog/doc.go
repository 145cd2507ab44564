// Package catalog is the system-of-record store: canonical artist and label
// entities plus the append-only staging rows ingested from vendor reports.
//
// Ranking data never lives here; the chartstore package owns the derived
// store and the mirror package keeps the two consistent.
package catalog
