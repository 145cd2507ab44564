// Package logging builds the slog loggers used across airchart.
//
// Batch stages log per-unit progress (file ingested, entity resolved, window
// aggregated) at info level with a component prefix; the console handler keeps
// that output readable while the json handler serves log shippers.
package logging
