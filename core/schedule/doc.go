// Package schedule bounds the number of simultaneous in-flight API
// requests with a counting permit pool.
//
// All work items are scheduled up front; at most N run at once. Progress
// advances once per terminal outcome, success or failure, so a progress
// display tracks completions rather than submissions. Failures are
// logged and counted by the item itself, never propagated to siblings.
package schedule
