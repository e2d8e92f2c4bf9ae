// Package history records one audit row per CLI invocation: which
// command ran, when, and its success/skipped/errors totals. The table is
// append-only and purely informational.
package history
