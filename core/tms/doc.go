// Package tms implements the resilient TMS API client the operator
// commands are built on.
//
// # Request Execution
//
// Client.Do issues a single logical request with a fixed per-call
// timeout. Rate limiting (429) and connection-level failures are retried
// transparently with exponential backoff, honoring a server-provided
// Retry-After delay when one is present. Every other status is returned
// to the caller, which interprets it semantically: 409 means the entity
// already exists, and some listing endpoints use 400 for "no results".
//
// # Pagination
//
// Paginate drives repeated Do calls through a listing endpoint, fetching
// pages strictly in order. Traversal ends on an empty page or when the
// total page count advertised in the Pagination response header is
// exhausted. An optional free-text filter narrows results server-side.
package tms
