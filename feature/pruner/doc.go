// Package pruner enforces per-project user quotas. Only users
// provisioned after a cutoff timestamp count toward the limit; the
// excess portion is removed newest-first through the bounded scheduler.
package pruner
