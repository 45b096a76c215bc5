package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/calldeck/calldeck/internal/connection"
	"github.com/calldeck/calldeck/internal/model"
	"github.com/calldeck/calldeck/internal/store"
)

// handlerFunc decodes and applies one event. receivedAt is the local arrival
// time, used when the event carries no timestamp.
type handlerFunc func(data []byte, receivedAt time.Time) error

// Router drains the push channel and reconciles events into the store.
type Router struct {
	cfg    RouterConfig
	logger *slog.Logger

	// Input from the Connection Supervisor
	input <-chan connection.TimestampedMessage

	// Output: the shared call cache
	store *store.Store

	// Closed dispatch table, built once in NewRouter.
	handlers map[EventType]handlerFunc

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu guards the counters and the pending buffer: the routing goroutine
	// writes both, Stats() reads them from health/debug goroutines.
	mu            sync.RWMutex
	pending       *pendingBuffer
	received      int64
	applied       int64
	parseErrors   int64
	unknownEvents int64
}

// NewRouter creates a new Event Router writing into st.
func NewRouter(cfg RouterConfig, input <-chan connection.TimestampedMessage, st *store.Store, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PendingInteractionsPerCall < 1 {
		cfg.PendingInteractionsPerCall = DefaultRouterConfig().PendingInteractionsPerCall
	}

	r := &Router{
		cfg:     cfg,
		logger:  logger,
		input:   input,
		store:   st,
		pending: newPendingBuffer(cfg.PendingInteractionsPerCall),
	}

	r.handlers = map[EventType]handlerFunc{
		EventCallStarted:         r.handleCallEvent,
		EventCallUpdated:         r.handleCallEvent,
		EventCallEnded:           r.handleCallEnded,
		EventInteractionAdded:    r.handleInteraction,
		EventQAScoreUpdated:      r.handleQAScore,
		EventSentimentChanged:    r.handleSentiment,
		EventEscalationTriggered: r.handleEscalationTriggered,
		EventEscalationCompleted: r.handleEscalationCompleted,
		EventNotificationCreated: r.handleNotification,
	}

	return r
}

// Start begins routing messages.
func (r *Router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	r.logger.Info("event router started",
		"pending_limit", r.cfg.PendingInteractionsPerCall,
	)

	return nil
}

// Stop gracefully shuts down the router.
func (r *Router) Stop(ctx context.Context) error {
	r.logger.Info("stopping event router")

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
		r.logger.Info("event router stopped")
	case <-ctx.Done():
		r.logger.Warn("event router stop timed out")
	}

	return nil
}

// Stats returns current statistics.
func (r *Router) Stats() RouterStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RouterStats{
		EventsReceived:      r.received,
		EventsApplied:       r.applied,
		ParseErrors:         r.parseErrors,
		UnknownEvents:       r.unknownEvents,
		PendingInteractions: r.pending.Len(),
		PendingDropped:      r.pending.Dropped(),
	}
}

// routeLoop is the single routing goroutine. One goroutine means events apply
// in arrival order; nothing here may spawn per-event work.
func (r *Router) routeLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case msg, ok := <-r.input:
			if !ok {
				r.logger.Info("input channel closed")
				return
			}
			r.Route(msg)
		}
	}
}

// Route decodes and applies a single message. Exported so the reconciliation
// behavior is testable without a live connection; production traffic goes
// through the Start loop.
func (r *Router) Route(msg connection.TimestampedMessage) {
	r.mu.Lock()
	r.received++
	r.mu.Unlock()

	var envelope messageEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		r.logger.Warn("failed to extract event type", "error", err)
		r.countParseError()
		return
	}

	handler, ok := r.handlers[envelope.Type]
	if !ok {
		// Tolerated: the server may ship event types we do not know yet.
		r.logger.Debug("skipping unknown event type", "type", envelope.Type)
		r.mu.Lock()
		r.unknownEvents++
		r.mu.Unlock()
		return
	}

	if err := handler(msg.Data, msg.ReceivedAt); err != nil {
		r.logger.Warn("failed to apply event", "type", envelope.Type, "error", err)
		r.countParseError()
		return
	}

	r.mu.Lock()
	r.applied++
	r.mu.Unlock()
}

// handleCallEvent applies call.started and call.updated. Both carry a call
// object with optional fields; the merge is field-level, so a call.updated
// that races ahead of its call.started still creates a usable record.
func (r *Router) handleCallEvent(data []byte, receivedAt time.Time) error {
	var wire callEventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Call.ID == "" {
		return fmt.Errorf("call event without id")
	}

	patch := store.CallPatch{
		Status:           wire.Call.Status,
		Sentiment:        wire.Call.Sentiment,
		QAScore:          wire.Call.QAScore,
		EscalationStatus: wire.Call.EscalationStatus,
		AssignedAgent:    wire.Call.AssignedAgent,
		StartedAt:        wire.Call.StartedAt,
		UpdatedAt:        eventTime(wire.Call.UpdatedAt, receivedAt),
	}

	_, created := r.store.ApplyPatch(wire.Call.ID, patch)
	if created {
		r.logger.Debug("call cached", "call_id", wire.Call.ID)
	}

	r.flushPending(wire.Call.ID)
	return nil
}

// handleCallEnded marks a call completed. The record stays cached so late
// interactions and QA scores still have somewhere to land.
func (r *Router) handleCallEnded(data []byte, receivedAt time.Time) error {
	var wire callEndedWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.CallID == "" {
		return fmt.Errorf("call.ended without call_id")
	}

	completed := model.StatusCompleted
	r.store.ApplyPatch(wire.CallID, store.CallPatch{
		Status:    &completed,
		UpdatedAt: eventTime(wire.UpdatedAt, receivedAt),
	})

	// A call that ends can no longer receive its call.started; parked
	// interactions for it would wait forever.
	r.flushPending(wire.CallID)
	return nil
}

// handleInteraction appends an interaction, or parks it when the call record
// has not arrived yet.
func (r *Router) handleInteraction(data []byte, _ time.Time) error {
	var wire interactionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Interaction.CallID == "" {
		return fmt.Errorf("interaction.added without call_id")
	}

	in := model.Interaction{
		ID:        wire.Interaction.ID,
		CallID:    wire.Interaction.CallID,
		Speaker:   wire.Interaction.Speaker,
		Content:   wire.Interaction.Content,
		CreatedAt: wire.Interaction.CreatedAt,
	}

	if !r.store.AppendInteraction(in) {
		r.mu.Lock()
		r.pending.Add(in)
		parked := r.pending.Len()
		r.mu.Unlock()
		r.logger.Debug("interaction parked", "call_id", in.CallID, "pending", parked)
	}
	return nil
}

// handleQAScore applies qa.score.updated.
func (r *Router) handleQAScore(data []byte, receivedAt time.Time) error {
	var wire scalarEventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.CallID == "" || wire.QAScore == nil {
		return fmt.Errorf("qa.score.updated missing call_id or qa_score")
	}

	r.store.ApplyPatch(wire.CallID, store.CallPatch{
		QAScore:   wire.QAScore,
		UpdatedAt: eventTime(wire.UpdatedAt, receivedAt),
	})
	return nil
}

// handleSentiment applies sentiment.changed.
func (r *Router) handleSentiment(data []byte, receivedAt time.Time) error {
	var wire scalarEventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.CallID == "" || wire.Sentiment == nil {
		return fmt.Errorf("sentiment.changed missing call_id or sentiment")
	}

	r.store.ApplyPatch(wire.CallID, store.CallPatch{
		Sentiment: wire.Sentiment,
		UpdatedAt: eventTime(wire.UpdatedAt, receivedAt),
	})
	return nil
}

// handleEscalationTriggered sets the escalation marker and moves the call to
// escalated status in one merge.
func (r *Router) handleEscalationTriggered(data []byte, receivedAt time.Time) error {
	var wire scalarEventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.CallID == "" {
		return fmt.Errorf("escalation.triggered without call_id")
	}

	triggered := model.EscalationTriggered
	escalated := model.StatusEscalated
	r.store.ApplyPatch(wire.CallID, store.CallPatch{
		Status:           &escalated,
		EscalationStatus: &triggered,
		UpdatedAt:        eventTime(wire.UpdatedAt, receivedAt),
	})
	return nil
}

// handleEscalationCompleted clears the escalation marker. The call status is
// left alone; a separate call.updated carries any status change.
func (r *Router) handleEscalationCompleted(data []byte, receivedAt time.Time) error {
	var wire scalarEventWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.CallID == "" {
		return fmt.Errorf("escalation.completed without call_id")
	}

	resolved := model.EscalationResolved
	r.store.ApplyPatch(wire.CallID, store.CallPatch{
		EscalationStatus: &resolved,
		UpdatedAt:        eventTime(wire.UpdatedAt, receivedAt),
	})
	return nil
}

// handleNotification only marks the notification list stale. The payload is
// not decoded: the list itself comes from the bulk API.
func (r *Router) handleNotification(_ []byte, _ time.Time) error {
	r.store.SignalNotificationRefresh()
	return nil
}

// flushPending appends parked interactions for a call that just appeared.
func (r *Router) flushPending(callID string) {
	r.mu.Lock()
	parked := r.pending.Drain(callID)
	r.mu.Unlock()
	if len(parked) == 0 {
		return
	}

	r.logger.Debug("flushing parked interactions", "call_id", callID, "count", len(parked))
	for _, in := range parked {
		r.store.AppendInteraction(in)
	}
}

func (r *Router) countParseError() {
	r.mu.Lock()
	r.parseErrors++
	r.mu.Unlock()
}

// eventTime prefers the server timestamp, falling back to local arrival time
// for events that do not carry one.
func eventTime(updatedAt int64, receivedAt time.Time) int64 {
	if updatedAt > 0 {
		return updatedAt
	}
	return receivedAt.UnixMicro()
}
