// Package sandbox runs a local in-memory TMS API for rehearsing
// operator runs before pointing them at a real account.
//
// The server reproduces the API behaviors the client engine depends on:
// page/per_page pagination, the Pagination header with total_pages_count
// on key listings, the name: batch filter, 409 on duplicate creations
// and links, 400 on key-links listings for never-linked keys, and
// optional injected 429 responses for retry rehearsal.
package sandbox
