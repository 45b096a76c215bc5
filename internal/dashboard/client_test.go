package dashboard

import (
	"testing"

	"github.com/calldeck/calldeck/internal/config"
	"github.com/calldeck/calldeck/internal/connection"
	"github.com/calldeck/calldeck/internal/subscription"
)

func newTestClient() *Client {
	cfg := config.DefaultConfig()
	cfg.API.WSURL = "ws://localhost:0/v1/stream"
	return New(cfg, nil)
}

func TestNewClientStartsDisconnected(t *testing.T) {
	c := newTestClient()

	if c.IsConnected() {
		t.Error("new client should not be connected")
	}
	if c.ConnectionState() != connection.StateDisconnected {
		t.Errorf("state = %q, want disconnected", c.ConnectionState())
	}
	if c.Store() == nil {
		t.Fatal("store should be constructed")
	}
	if c.Store().Len() != 0 {
		t.Error("store should start empty")
	}
}

func TestSubscriptionHelpersTrackInterest(t *testing.T) {
	c := newTestClient()

	// Offline: acquisitions are recorded and replayed on connect.
	c.SubscribeToAllCalls()
	c.SubscribeToNotifications()
	c.SubscribeToCall("c1")
	c.SubscribeToCall("c1")

	held := c.Held()
	if len(held) != 3 {
		t.Fatalf("held = %d descriptors, want 3", len(held))
	}

	c.UnsubscribeFromCall("c1")
	if len(c.Held()) != 3 {
		t.Error("one release of a doubly-held call should not drop it")
	}

	c.UnsubscribeFromCall("c1")
	held = c.Held()
	if len(held) != 2 {
		t.Fatalf("held = %d descriptors after final release, want 2", len(held))
	}
	for _, d := range held {
		if d.Kind == subscription.TopicCall {
			t.Errorf("call topic still held: %+v", d)
		}
	}
}

func TestStatsStartEmpty(t *testing.T) {
	c := newTestClient()

	stats := c.Stats()
	if stats.EventsReceived != 0 || stats.PendingInteractions != 0 {
		t.Errorf("stats = %+v, want zeroes", stats)
	}
}
