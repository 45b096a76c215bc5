// Package archive persists the change feed to Postgres.
//
// The dashboard core is purely in-memory; the archive is an optional sink
// that batches store changes into the call_events table so sessions can be
// audited after the fact. Inserts are idempotent (ON CONFLICT DO NOTHING),
// so replays after a crash do not duplicate rows.
package archive
