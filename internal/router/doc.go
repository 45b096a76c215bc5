// Package router implements the Event Router and Reconciler.
//
// A single goroutine drains the Connection Supervisor's message channel,
// decodes each push event by its type tag, and merges it into the store.
// One goroutine means per-connection arrival order is preserved end to end.
//
// Interactions that arrive before their call.started event are parked in a
// bounded per-call buffer and flushed when the call record appears; unknown
// event types and undecodable payloads are logged and dropped, never fatal.
package router
