// Package api provides the Calldeck REST client used for bulk loads.
//
// The push channel only carries deltas; this client fetches the authoritative
// snapshots the store is seeded from: active calls, interaction histories,
// and the notification list.
//
// Key endpoints: /calls, /calls/{id}, /calls/{id}/interactions, /notifications
package api
