// Package connection implements the Connection Supervisor.
//
// The Supervisor:
//   - Owns the single WebSocket connection to the push channel
//   - Handles the bearer-token handshake at connect time
//   - Detects disconnects and reconnects with bounded exponential backoff
//   - Emits a connected signal after every successful (re)open so the
//     Subscription Registry can replay its held subscriptions
//   - Surfaces a terminal signal once the retry cap is exhausted
//
// No other component touches the transport directly; subscribe and
// unsubscribe frames go through Send.
package connection
