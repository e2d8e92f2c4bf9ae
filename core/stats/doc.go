// Package stats provides the run-scoped success/skipped/errors counters
// and the end-of-run summary report. Counters are the only mutable state
// shared between scheduled work items.
package stats
