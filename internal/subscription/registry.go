package subscription

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Registry tracks ref-counted topic interest and keeps the server-side
// subscription set in sync with it across reconnects.
type Registry struct {
	sender Sender
	logger *slog.Logger

	mu   sync.Mutex
	refs map[Descriptor]int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a new Subscription Registry emitting frames through sender.
func NewRegistry(sender Sender, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sender: sender,
		logger: logger,
		refs:   make(map[Descriptor]int),
	}
}

// Start begins listening for connected signals and replaying held
// subscriptions on each one.
func (r *Registry) Start(ctx context.Context, connected <-chan struct{}) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-connected:
				r.Replay()
			}
		}
	}()

	return nil
}

// Stop shuts down the replay loop.
func (r *Registry) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Acquire increments the ref count for d. On the first acquisition the
// subscribe frame is emitted if the connection is up; otherwise the need is
// recorded and replayed on the next connected signal.
func (r *Registry) Acquire(d Descriptor) {
	r.mu.Lock()
	r.refs[d]++
	first := r.refs[d] == 1
	r.mu.Unlock()

	if !first {
		return
	}

	r.logger.Debug("topic acquired", "kind", d.Kind, "id", d.ID)

	if r.sender.IsConnected() {
		if err := r.sender.Send(SubscribeFrame(d).Encode()); err != nil {
			// Not fatal: the reconnect replay re-derives this intent.
			r.logger.Warn("subscribe frame failed", "kind", d.Kind, "id", d.ID, "error", err)
		}
	}
}

// Release decrements the ref count for d. On the last release the descriptor
// is removed and the unsubscribe frame emitted if the connection is up.
// Events already received for the topic are still applied; release affects
// future delivery only.
func (r *Registry) Release(d Descriptor) {
	r.mu.Lock()
	count, ok := r.refs[d]
	if !ok {
		r.mu.Unlock()
		r.logger.Warn("release of unheld topic", "kind", d.Kind, "id", d.ID)
		return
	}
	count--
	last := count == 0
	if last {
		delete(r.refs, d)
	} else {
		r.refs[d] = count
	}
	r.mu.Unlock()

	if !last {
		return
	}

	r.logger.Debug("topic released", "kind", d.Kind, "id", d.ID)

	if r.sender.IsConnected() {
		if err := r.sender.Send(UnsubscribeFrame(d).Encode()); err != nil {
			r.logger.Warn("unsubscribe frame failed", "kind", d.Kind, "id", d.ID, "error", err)
		}
	}
}

// Held returns all descriptors with a positive ref count, in stable order.
func (r *Registry) Held() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	held := make([]Descriptor, 0, len(r.refs))
	for d := range r.refs {
		held = append(held, d)
	}
	sortDescriptors(held)
	return held
}

// Refs returns the current ref count for d.
func (r *Registry) Refs(d Descriptor) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refs[d]
}

// Replay re-emits subscribe frames for every held descriptor. Called on each
// connected signal; safe to call manually.
func (r *Registry) Replay() {
	held := r.Held()
	frames := ReplayFrames(held)

	r.logger.Info("replaying subscriptions", "count", len(frames))

	for _, f := range frames {
		if err := r.sender.Send(f.Encode()); err != nil {
			r.logger.Warn("replay frame failed", "topic", f.Topic, "id", f.ID, "error", err)
		}
	}
}

// ReplayFrames derives the subscribe frames for a set of held descriptors.
// Pure: the reconnect-resubscribe behavior is testable without a socket.
func ReplayFrames(held []Descriptor) []Frame {
	frames := make([]Frame, 0, len(held))
	for _, d := range held {
		frames = append(frames, SubscribeFrame(d))
	}
	return frames
}

// sortDescriptors orders by kind, then id, for deterministic replay.
func sortDescriptors(ds []Descriptor) {
	sort.Slice(ds, func(i, j int) bool {
		if ds[i].Kind != ds[j].Kind {
			return ds[i].Kind < ds[j].Kind
		}
		return ds[i].ID < ds[j].ID
	})
}
