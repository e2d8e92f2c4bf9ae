// Package linker propagates translations by linking keys in a parent
// project to same-named keys in every other project.
//
// A run fetches all projects and the parent's keys, collects already
// existing links, looks candidates up in child projects with batched
// name filters, and schedules one link-creation call per parent key for
// the remainder. A child key observed as linked anywhere is never linked
// again within the same run.
package linker
