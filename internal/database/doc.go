// Package database manages the optional Postgres connection used by the
// event archive. Everything else in the dashboard core is in-memory; the
// pool exists only when archiving is configured.
package database
