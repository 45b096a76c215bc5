package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClient is a Client whose traffic the test controls directly.
type fakeClient struct {
	mu        sync.Mutex
	sent      [][]byte
	connected bool

	messages chan TimestampedMessage
	errors   chan error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		connected: true,
		messages:  make(chan TimestampedMessage, 10),
		errors:    make(chan error, 1),
	}
}

func (f *fakeClient) Connect(ctx context.Context) error { return nil }

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeClient) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeClient) Messages() <-chan TimestampedMessage { return f.messages }
func (f *fakeClient) Errors() <-chan error                { return f.errors }

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// fail simulates the connection dropping.
func (f *fakeClient) fail() {
	f.errors <- errors.New("connection reset")
}

func testSupervisorConfig() SupervisorConfig {
	cfg := DefaultSupervisorConfig()
	cfg.WSURL = "ws://localhost:0"
	cfg.ReconnectBaseDelay = time.Millisecond
	cfg.ReconnectMaxDelay = 5 * time.Millisecond
	cfg.MaxAttempts = 3
	return cfg
}

func waitForState(t *testing.T, s *Supervisor, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %q, want %q", s.State(), want)
}

func TestSupervisor_ConnectIdempotent(t *testing.T) {
	var dials atomic.Int32
	s := NewSupervisor(testSupervisorConfig(), nil)
	s.dial = func(ctx context.Context, token, session string) (Client, error) {
		dials.Add(1)
		return newFakeClient(), nil
	}

	ctx := context.Background()
	if err := s.Connect(ctx, "token"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := s.Connect(ctx, "token"); err != nil {
		t.Fatalf("second Connect failed: %v", err)
	}

	waitForState(t, s, StateConnected)
	defer s.Disconnect()

	if got := dials.Load(); got != 1 {
		t.Errorf("dials = %d, want 1 (Connect must be idempotent)", got)
	}
	if !s.IsConnected() {
		t.Error("expected IsConnected after successful dial")
	}
}

func TestSupervisor_ConnectedSignalOnEveryOpen(t *testing.T) {
	var dials atomic.Int32
	current := make(chan *fakeClient, 2)

	s := NewSupervisor(testSupervisorConfig(), nil)
	s.dial = func(ctx context.Context, token, session string) (Client, error) {
		dials.Add(1)
		cl := newFakeClient()
		current <- cl
		return cl, nil
	}

	if err := s.Connect(context.Background(), "token"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Disconnect()

	select {
	case <-s.Connected():
	case <-time.After(2 * time.Second):
		t.Fatal("no connected signal after first open")
	}

	// Drop the connection; the supervisor should redial and signal again.
	cl := <-current
	cl.fail()

	select {
	case <-s.Connected():
	case <-time.After(2 * time.Second):
		t.Fatal("no connected signal after reconnect")
	}

	if got := dials.Load(); got != 2 {
		t.Errorf("dials = %d, want 2", got)
	}
}

func TestSupervisor_TerminalAfterRetryCap(t *testing.T) {
	var dials atomic.Int32
	s := NewSupervisor(testSupervisorConfig(), nil)
	// Fails fast until the retry cap; after that each dial hangs so the
	// supervisor sits in the connecting state.
	s.dial = func(ctx context.Context, token, session string) (Client, error) {
		if dials.Add(1) <= 3 {
			return nil, errors.New("refused")
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if err := s.Connect(context.Background(), "token"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	select {
	case <-s.Terminal():
	case <-time.After(2 * time.Second):
		t.Fatal("no terminal signal after exhausting retries")
	}

	waitForState(t, s, StateDisconnected)

	if got := dials.Load(); got != 3 {
		t.Errorf("dials = %d, want 3 (the retry cap)", got)
	}
	if err := s.Send([]byte("x")); err != ErrTerminal {
		t.Errorf("Send after terminal = %v, want ErrTerminal", err)
	}

	// Connect after terminal resets the attempt counter and retries.
	if err := s.Connect(context.Background(), "token"); err != nil {
		t.Fatalf("Connect after terminal failed: %v", err)
	}
	defer s.Disconnect()

	deadline := time.Now().Add(2 * time.Second)
	for dials.Load() < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if dials.Load() < 4 {
		t.Error("expected dialing to resume after explicit Connect")
	}

	// The terminal sentinel clears once dialing resumes.
	if err := s.Send([]byte("x")); err != ErrNotConnected {
		t.Errorf("Send while redialing = %v, want ErrNotConnected", err)
	}
}

func TestSupervisor_MessagesForwarded(t *testing.T) {
	cl := newFakeClient()
	s := NewSupervisor(testSupervisorConfig(), nil)
	s.dial = func(ctx context.Context, token, session string) (Client, error) {
		return cl, nil
	}

	if err := s.Connect(context.Background(), "token"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Disconnect()

	waitForState(t, s, StateConnected)

	want := TimestampedMessage{Data: []byte(`{"type":"call.started"}`), ReceivedAt: time.Now()}
	cl.messages <- want

	select {
	case got := <-s.Messages():
		if string(got.Data) != string(want.Data) {
			t.Errorf("forwarded %q, want %q", got.Data, want.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not forwarded")
	}
}

func TestSupervisor_SendWhileDisconnected(t *testing.T) {
	s := NewSupervisor(testSupervisorConfig(), nil)

	if err := s.Send([]byte("x")); err != ErrNotConnected {
		t.Errorf("Send = %v, want ErrNotConnected", err)
	}
}

func TestSupervisor_SendGoesThroughClient(t *testing.T) {
	cl := newFakeClient()
	s := NewSupervisor(testSupervisorConfig(), nil)
	s.dial = func(ctx context.Context, token, session string) (Client, error) {
		return cl, nil
	}

	if err := s.Connect(context.Background(), "token"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer s.Disconnect()

	waitForState(t, s, StateConnected)

	frame := []byte(`{"action":"subscribe","topic":"all_calls"}`)
	if err := s.Send(frame); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if len(cl.sent) != 1 || string(cl.sent[0]) != string(frame) {
		t.Errorf("client saw %q", cl.sent)
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 100 * time.Millisecond
	max := 800 * time.Millisecond

	tests := []struct {
		attempt int
		nominal time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{10, 800 * time.Millisecond}, // capped
	}

	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			got := backoffDelay(base, max, tt.attempt)
			lo := tt.nominal * 3 / 4
			hi := tt.nominal * 5 / 4
			if got < lo || got > hi {
				t.Errorf("backoffDelay(attempt=%d) = %v, want within [%v, %v]",
					tt.attempt, got, lo, hi)
			}
		}
	}

	if got := backoffDelay(0, max, 1); got != 0 {
		t.Errorf("backoffDelay with zero base = %v, want 0", got)
	}
}
