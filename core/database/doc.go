// Package database manages the optional MySQL connection backing the
// run-history audit table. Recording is off by default; the CLI works
// fully without it.
package database
