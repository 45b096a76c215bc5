// Package subscription implements the Subscription Registry.
//
// The Registry translates UI-level interest ("I need updates for call X")
// into the minimal set of active server subscriptions. Each topic carries a
// reference count; the subscribe frame goes out when the count goes 0->1 and
// the unsubscribe frame when it returns to 0. After every reconnect the
// Registry replays subscribe frames for everything still held, which is what
// makes subscriptions reconnect-safe without server-side session state.
package subscription
