package refresher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/calldeck/calldeck/internal/api"
	"github.com/calldeck/calldeck/internal/model"
	"github.com/calldeck/calldeck/internal/store"
)

// NotificationHandler receives the re-fetched notification list.
type NotificationHandler interface {
	HandleNotifications(list []model.Notification)
}

// NotificationHandlerFunc is a function adapter for NotificationHandler.
type NotificationHandlerFunc func([]model.Notification)

func (f NotificationHandlerFunc) HandleNotifications(list []model.Notification) {
	f(list)
}

// Config holds refresher configuration.
type Config struct {
	Interval    time.Duration // Full re-sync interval (default: 5m)
	PageSize    int           // Bulk fetch page size (default: 500)
	Concurrency int           // Max concurrent interaction fetches (default: 8)
	Timeout     time.Duration // Per-sync timeout (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Minute,
		PageSize:    500,
		Concurrency: 8,
		Timeout:     30 * time.Second,
	}
}

// Refresher periodically re-syncs the store from the bulk API. Push events
// keep the cache fresh between cycles; the refresher repairs whatever a
// dropped message or missed window left stale, and reloads the notification
// list when the router signals it.
type Refresher struct {
	cfg     Config
	client  *api.Client
	store   *store.Store
	handler NotificationHandler
	logger  *slog.Logger

	trigger chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Refresher.
func New(cfg Config, client *api.Client, st *store.Store, handler NotificationHandler, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultConfig().PageSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Refresher{
		cfg:     cfg,
		client:  client,
		store:   st,
		handler: handler,
		logger:  logger,
		trigger: make(chan struct{}, 1),
	}
}

// Start begins the refresh loop.
func (r *Refresher) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.run()

	r.logger.Info("refresher started",
		"interval", r.cfg.Interval,
		"concurrency", r.cfg.Concurrency,
	)

	return nil
}

// Stop gracefully shuts down the refresher.
func (r *Refresher) Stop(ctx context.Context) error {
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
		r.logger.Info("refresher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger requests an immediate re-sync, coalescing with any pending one.
// Used after a reconnect, when events during the gap may have been missed.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// run is the main refresh loop.
func (r *Refresher) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	// Seed the store immediately on start.
	r.syncCalls()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.syncCalls()
		case <-r.trigger:
			r.syncCalls()
		case <-r.store.NotificationRefresh():
			r.syncNotifications()
		}
	}
}

// syncCalls fetches all active calls and merges them into the store, then
// loads interaction history for calls the cache had not seen before.
func (r *Refresher) syncCalls() {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.Timeout)
	defer cancel()

	calls, err := r.client.GetAllCallsWithOptions(ctx, api.GetCallsOptions{
		Active: true,
		Limit:  r.cfg.PageSize,
	})
	if err != nil {
		r.logger.Warn("call sync failed", "err", err)
		return
	}

	var newCalls []string
	var applied int
	for i := range calls {
		rec := calls[i].ToModel()
		known := r.store.Has(rec.ID)
		if r.store.UpsertFromSnapshot(rec) {
			applied++
		}
		if !known {
			newCalls = append(newCalls, rec.ID)
		}
	}

	r.seedInteractions(ctx, newCalls)

	r.logger.Info("call sync complete",
		"calls", len(calls),
		"applied", applied,
		"new", len(newCalls),
		"duration", time.Since(start),
	)
}

// seedInteractions fetches interaction history for newly discovered calls
// with bounded concurrency.
func (r *Refresher) seedInteractions(ctx context.Context, callIDs []string) {
	if len(callIDs) == 0 {
		return
	}

	var fetched atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, id := range callIDs {
		id := id
		g.Go(func() error {
			list, err := r.client.GetInteractions(gctx, id)
			if err != nil {
				// One failed history never aborts the sweep.
				r.logger.Warn("failed to fetch interactions", "call_id", id, "err", err)
				return nil
			}
			for i := range list {
				r.store.AppendInteraction(list[i].ToModel())
			}
			fetched.Add(1)
			return nil
		})
	}

	g.Wait()

	r.logger.Debug("seeded interaction histories",
		"calls", len(callIDs),
		"fetched", fetched.Load(),
	)
}

// syncNotifications re-fetches the notification list and hands it to the
// handler. Triggered by notification.created events.
func (r *Refresher) syncNotifications() {
	ctx, cancel := context.WithTimeout(r.ctx, r.cfg.Timeout)
	defer cancel()

	list, err := r.client.GetAllNotifications(ctx)
	if err != nil {
		r.logger.Warn("notification sync failed", "err", err)
		return
	}

	notifications := make([]model.Notification, 0, len(list))
	for i := range list {
		notifications = append(notifications, list[i].ToModel())
	}

	if r.handler != nil {
		r.handler.HandleNotifications(notifications)
	}

	r.logger.Debug("notification sync complete", "count", len(notifications))
}
