// Package model defines shared data types used across the calldeck sync core.
//
// Conventions:
//   - Timestamps: int64 microseconds since Unix epoch
//   - IDs: opaque strings assigned by the server
//   - QA scores: float64 in the range 0-100
package model
