// Package store implements the authoritative in-memory call cache.
//
// The Event Router's reconciler is the sole writer; UI surfaces, the
// refresher, and the archive writer read through accessors that return
// copies. Merges are field-level last-write-wins with a monotonic UpdatedAt,
// so push events and bulk snapshots can be applied in any order.
package store
