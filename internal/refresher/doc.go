// Package refresher re-syncs the call cache from the bulk API.
//
// The push channel is the fast path; the refresher is the repair path. It
// sweeps the active call list on an interval (and on demand after a
// reconnect), merges snapshots through the store's staleness check, and
// re-fetches the notification list whenever the router marks it stale.
package refresher
