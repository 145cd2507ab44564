// Package stage defines the contract shared by the four batch jobs.
package stage

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Options carries the flags every stage command accepts. Stages ignore the
// fields that do not apply to them.
type Options struct {
	// Force recomputes units that already exist (finalized windows,
	// previously ingested files).
	Force bool
	// Resume reloads prior-rank state from storage and continues from the
	// latest existing window.
	Resume bool
	// Limit bounds how many units (files, windows) this invocation
	// processes. Zero means no limit.
	Limit int
	// Offset skips that many units before processing starts.
	Offset int
}

// Summary accumulates end-of-stage counters for operator output.
type Summary map[string]int

// Add increments a named counter.
func (s Summary) Add(key string, delta int) {
	s[key] += delta
}

// Merge folds another summary into this one.
func (s Summary) Merge(other Summary) {
	for key, value := range other {
		s[key] += value
	}
}

// String renders counters as "key=value" pairs in stable order.
func (s Summary) String() string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", key, s[key]))
	}
	return strings.Join(parts, " ")
}

// Stage is one re-runnable batch job in the pipeline.
type Stage interface {
	Name() string
	Run(ctx context.Context, opts Options) (Summary, error)
}

// Bound applies offset/limit to a slice length and returns the half-open
// index range to process.
func Bound(total int, opts Options) (int, int) {
	start := opts.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	return start, end
}
