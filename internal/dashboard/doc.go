// Package dashboard wires the sync core together behind one facade.
//
// A Client owns the store, the Connection Supervisor, the Subscription
// Registry, and the Event Router, in the arrangement every UI surface needs:
// subscribe calls translate to ref-counted registry acquisitions, inbound
// events flow from the supervisor through the router into the store, and
// reconnects replay the held subscription set automatically.
package dashboard
