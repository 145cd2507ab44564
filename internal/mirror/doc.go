// Package mirror keeps the chart store's denormalized entity references in
// step with the catalog, which is the system of record. The mirror is
// replaced wholesale on every run; a read of the chart store never needs
// the catalog attached.
package mirror
