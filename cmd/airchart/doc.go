// Command airchart runs the radio airplay chart pipeline: report ingestion,
// identity resolution, store synchronization, and ranking aggregation, plus
// read-side chart views.
package main
