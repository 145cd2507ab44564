// Package chartstore owns the derived ranking database: weekly windows,
// ranked items, fairness receipts and the mirrored canonical-entity tables.
//
// Everything here is regenerated by the aggregator and synchronizer. The
// store is deliberately independent of the catalog database; the two are
// never written inside one transaction.
package chartstore
