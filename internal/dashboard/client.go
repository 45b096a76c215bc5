package dashboard

import (
	"context"
	"log/slog"

	"github.com/calldeck/calldeck/internal/config"
	"github.com/calldeck/calldeck/internal/connection"
	"github.com/calldeck/calldeck/internal/router"
	"github.com/calldeck/calldeck/internal/store"
	"github.com/calldeck/calldeck/internal/subscription"
)

// Client is the assembled sync core for one dashboard session.
type Client struct {
	logger *slog.Logger

	store      *store.Store
	supervisor *connection.Supervisor
	registry   *subscription.Registry
	router     *router.Router
}

// New builds the sync core from configuration. Nothing connects until Start.
func New(cfg *config.DashboardConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	st := store.New()

	sup := connection.NewSupervisor(connection.SupervisorConfig{
		WSURL:              cfg.API.WSURL,
		ReconnectBaseDelay: cfg.Connection.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Connection.ReconnectMaxDelay,
		MaxAttempts:        cfg.Connection.MaxAttempts,
		PingTimeout:        cfg.Connection.PingTimeout,
		WriteTimeout:       cfg.Connection.WriteTimeout,
		BufferSize:         cfg.Connection.BufferSize,
	}, logger.With("component", "connection"))

	rt := router.NewRouter(router.RouterConfig{
		PendingInteractionsPerCall: cfg.Router.PendingInteractionsPerCall,
	}, sup.Messages(), st, logger.With("component", "router"))

	reg := subscription.NewRegistry(sup, logger.With("component", "subscription"))

	return &Client{
		logger:     logger,
		store:      st,
		supervisor: sup,
		registry:   reg,
		router:     rt,
	}
}

// Start brings the core up: the router drains inbound events, the registry
// replays subscriptions on every connect, and the supervisor starts dialing.
func (c *Client) Start(ctx context.Context, authToken string) error {
	if err := c.router.Start(ctx); err != nil {
		return err
	}
	if err := c.registry.Start(ctx, c.supervisor.Connected()); err != nil {
		return err
	}
	return c.supervisor.Connect(ctx, authToken)
}

// Stop tears the core down in dependency order.
func (c *Client) Stop(ctx context.Context) error {
	if err := c.supervisor.Disconnect(); err != nil {
		return err
	}
	if err := c.registry.Stop(ctx); err != nil {
		return err
	}
	return c.router.Stop(ctx)
}

// Reconnect restarts the connection loop after a terminal failure.
func (c *Client) Reconnect(ctx context.Context, authToken string) error {
	return c.supervisor.Connect(ctx, authToken)
}

// SubscribeToCall registers interest in one call's updates.
func (c *Client) SubscribeToCall(id string) {
	c.registry.Acquire(subscription.Descriptor{Kind: subscription.TopicCall, ID: id})
}

// UnsubscribeFromCall releases one interest in a call's updates.
func (c *Client) UnsubscribeFromCall(id string) {
	c.registry.Release(subscription.Descriptor{Kind: subscription.TopicCall, ID: id})
}

// SubscribeToAllCalls registers interest in the firehose of call updates.
func (c *Client) SubscribeToAllCalls() {
	c.registry.Acquire(subscription.Descriptor{Kind: subscription.TopicAllCalls})
}

// UnsubscribeFromAllCalls releases one firehose interest.
func (c *Client) UnsubscribeFromAllCalls() {
	c.registry.Release(subscription.Descriptor{Kind: subscription.TopicAllCalls})
}

// SubscribeToNotifications registers interest in notification events.
func (c *Client) SubscribeToNotifications() {
	c.registry.Acquire(subscription.Descriptor{Kind: subscription.TopicNotifications})
}

// UnsubscribeFromNotifications releases one notification interest.
func (c *Client) UnsubscribeFromNotifications() {
	c.registry.Release(subscription.Descriptor{Kind: subscription.TopicNotifications})
}

// Store returns the shared call cache.
func (c *Client) Store() *store.Store {
	return c.store
}

// IsConnected returns true while the push channel is up.
func (c *Client) IsConnected() bool {
	return c.supervisor.IsConnected()
}

// ConnectionState returns the supervisor's lifecycle state.
func (c *Client) ConnectionState() connection.State {
	return c.supervisor.State()
}

// Terminal signals when the supervisor gives up reconnecting.
func (c *Client) Terminal() <-chan struct{} {
	return c.supervisor.Terminal()
}

// Held returns the currently held subscription set.
func (c *Client) Held() []subscription.Descriptor {
	return c.registry.Held()
}

// Stats returns router statistics.
func (c *Client) Stats() router.RouterStats {
	return c.router.Stats()
}
