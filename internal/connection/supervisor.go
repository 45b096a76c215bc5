package connection

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Supervisor owns the single push-channel connection and its reconnect
// state machine. All subscribe/unsubscribe frames and inbound envelopes
// pass through it; it never touches the call cache itself.
type Supervisor struct {
	cfg    SupervisorConfig
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	client    Client
	running   bool
	gaveUp    bool
	authToken string
	sessionID string

	// Outputs
	messages  chan TimestampedMessage
	connected chan struct{}
	terminal  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// dial is replaced in tests to avoid a real socket.
	dial func(ctx context.Context, token, session string) (Client, error)
}

// NewSupervisor creates a new Connection Supervisor.
func NewSupervisor(cfg SupervisorConfig, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Supervisor{
		cfg:       cfg,
		logger:    logger,
		state:     StateDisconnected,
		messages:  make(chan TimestampedMessage, cfg.BufferSize),
		connected: make(chan struct{}, 1),
		terminal:  make(chan struct{}, 1),
	}
	s.dial = s.dialClient
	return s
}

// Connect starts the connection loop with the given auth token.
// It is idempotent: calling it while already connecting or connected is a
// no-op. A token change requires Disconnect followed by Connect. Calling it
// after a terminal failure resets the attempt counter and retries.
func (s *Supervisor) Connect(ctx context.Context, authToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.running = true
	s.gaveUp = false
	s.authToken = authToken
	s.sessionID = uuid.NewString()
	s.setStateLocked(StateConnecting)
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run(s.ctx)

	return nil
}

// Disconnect tears the connection down and stops reconnecting.
func (s *Supervisor) Disconnect() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.setStateLocked(StateDisconnected)
	return nil
}

// Send writes a frame to the connection. Frames sent while disconnected are
// rejected; the Subscription Registry re-derives subscribe intent after
// reconnect instead of relying on a queue. After the retry cap is exhausted
// Send returns ErrTerminal until Connect is called again.
func (s *Supervisor) Send(data []byte) error {
	s.mu.Lock()
	cl := s.client
	st := s.state
	gaveUp := s.gaveUp
	s.mu.Unlock()

	if st != StateConnected || cl == nil {
		if gaveUp {
			return ErrTerminal
		}
		return ErrNotConnected
	}
	return cl.Send(data)
}

// IsConnected returns true while the connection is up.
func (s *Supervisor) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateConnected
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns the channel of inbound envelopes across reconnects.
func (s *Supervisor) Messages() <-chan TimestampedMessage {
	return s.messages
}

// Connected signals after every successful open, including reconnects.
// The Subscription Registry consumes this to replay held subscriptions.
func (s *Supervisor) Connected() <-chan struct{} {
	return s.connected
}

// Terminal signals when the retry cap is exhausted. The connection is then
// disconnected until Connect is called again.
func (s *Supervisor) Terminal() <-chan struct{} {
	return s.terminal
}

// run is the connect/reconnect loop.
func (s *Supervisor) run(ctx context.Context) {
	defer s.wg.Done()

	attempt := 0

	for {
		s.mu.Lock()
		token, session := s.authToken, s.sessionID
		s.mu.Unlock()

		cl, err := s.dial(ctx, token, session)
		if err != nil {
			attempt++
			s.logger.Warn("connect attempt failed",
				"attempt", attempt,
				"max_attempts", s.cfg.MaxAttempts,
				"error", err,
			)

			if attempt >= s.cfg.MaxAttempts {
				s.giveUp()
				return
			}

			s.setState(StateReconnecting)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoffDelay(s.cfg.ReconnectBaseDelay, s.cfg.ReconnectMaxDelay, attempt)):
			}
			continue
		}

		attempt = 0
		s.mu.Lock()
		s.client = cl
		s.setStateLocked(StateConnected)
		s.mu.Unlock()

		// Non-blocking: a pending signal already covers this open, replay
		// works from the full held set.
		select {
		case s.connected <- struct{}{}:
		default:
		}

		lost := s.pump(ctx, cl)
		cl.Close()

		s.mu.Lock()
		s.client = nil
		s.mu.Unlock()

		if !lost {
			// Explicit disconnect or context cancellation.
			return
		}

		attempt = 1
		s.setState(StateReconnecting)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoffDelay(s.cfg.ReconnectBaseDelay, s.cfg.ReconnectMaxDelay, attempt)):
		}
	}
}

// pump forwards client messages until the connection is lost or the
// supervisor is stopped. Returns true when the connection was lost
// unexpectedly and a reconnect should be scheduled.
func (s *Supervisor) pump(ctx context.Context, cl Client) bool {
	for {
		select {
		case <-ctx.Done():
			return false

		case err := <-cl.Errors():
			s.logger.Warn("connection lost", "error", err)
			return true

		case msg, ok := <-cl.Messages():
			if !ok {
				return true
			}
			select {
			case s.messages <- msg:
			case <-ctx.Done():
				return false
			default:
				s.logger.Warn("message buffer full, dropping envelope")
			}
		}
	}
}

// giveUp transitions to the terminal disconnected state.
func (s *Supervisor) giveUp() {
	s.logger.Error("retry cap exceeded, giving up",
		"max_attempts", s.cfg.MaxAttempts,
	)

	s.mu.Lock()
	s.running = false
	s.gaveUp = true
	s.setStateLocked(StateDisconnected)
	s.mu.Unlock()

	select {
	case s.terminal <- struct{}{}:
	default:
	}
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setStateLocked(st)
}

// setStateLocked logs and records a state transition. Caller holds mu.
func (s *Supervisor) setStateLocked(st State) {
	if s.state == st {
		return
	}
	s.logger.Info("connection state change", "from", s.state, "to", st)
	s.state = st
}

// dialClient creates and connects a real WebSocket client.
func (s *Supervisor) dialClient(ctx context.Context, token, session string) (Client, error) {
	cl := NewClient(ClientConfig{
		URL:          s.cfg.WSURL,
		AuthToken:    token,
		SessionID:    session,
		PingTimeout:  s.cfg.PingTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BufferSize:   s.cfg.BufferSize,
	}, s.logger.With("session", session))

	if err := cl.Connect(ctx); err != nil {
		return nil, err
	}
	return cl, nil
}

// backoffDelay returns the wait before reconnect attempt n (1-based):
// base doubled per attempt, capped at max, with +/-25% jitter.
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	if delay > max {
		delay = max
	}
	if delay <= 0 {
		return 0
	}

	// Jitter: delay * (0.75 to 1.25)
	jitter := delay/2 + time.Duration(rand.Int63n(int64(delay)))
	return delay/2 + jitter/2
}
