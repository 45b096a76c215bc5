package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calldeck/calldeck/internal/api"
	"github.com/calldeck/calldeck/internal/archive"
	"github.com/calldeck/calldeck/internal/config"
	"github.com/calldeck/calldeck/internal/dashboard"
	"github.com/calldeck/calldeck/internal/database"
	"github.com/calldeck/calldeck/internal/model"
	"github.com/calldeck/calldeck/internal/refresher"
	"github.com/calldeck/calldeck/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/calldeck.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting calldeckd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"rest_url", cfg.API.RestURL,
		"ws_url", cfg.API.WSURL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to the archive database when configured
	var pool *pgxpool.Pool
	if cfg.ArchiveEnabled() {
		logger.Info("connecting to archive database",
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)

		pool, err = database.Connect(ctx, cfg.Database.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		logger.Info("archive database connected")
	} else {
		logger.Info("archive disabled, running in-memory only")
	}

	// Create REST client for bulk loads
	apiClient := api.NewClient(
		cfg.API.RestURL,
		cfg.API.AuthToken,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	// Assemble the sync core
	core := dashboard.New(cfg, logger)

	// Archive writer consumes the store's change feed
	var writer *archive.EventWriter
	if pool != nil {
		writer = archive.NewEventWriter(archive.WriterConfig{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
		}, core.Store().Watch(), pool, logger.With("component", "archive"))

		if err := writer.Start(ctx); err != nil {
			logger.Error("failed to start archive writer", "error", err)
			os.Exit(1)
		}
	}

	// Notification list, refreshed on demand
	notifs := &notificationHolder{}

	refr := refresher.New(refresher.Config{
		Interval:    cfg.Refresher.Interval,
		PageSize:    cfg.Refresher.PageSize,
		Concurrency: cfg.Refresher.Concurrency,
	}, apiClient, core.Store(), notifs, logger.With("component", "refresher"))

	if err := refr.Start(ctx); err != nil {
		logger.Error("failed to start refresher", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		refr.Stop(shutdownCtx)
	}()

	// Bring the push channel up and register standing interest
	if err := core.Start(ctx, cfg.API.AuthToken); err != nil {
		logger.Error("failed to start sync core", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		core.Stop(shutdownCtx)
	}()

	core.SubscribeToAllCalls()
	core.SubscribeToNotifications()

	// The supervisor gives up after the retry cap; the daemon waits out a
	// cooldown, reconnects, and triggers a repair sync for the gap.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-core.Terminal():
				logger.Error("push channel gave up, reconnecting after cooldown")
				select {
				case <-ctx.Done():
					return
				case <-time.After(30 * time.Second):
				}
				if err := core.Reconnect(ctx, cfg.API.AuthToken); err != nil {
					logger.Error("reconnect failed", "error", err)
					continue
				}
				refr.Trigger()
			}
		}
	}()

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(cfg, core, writer, notifs),
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("calldeckd running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	if writer != nil {
		writer.Stop(shutdownCtx)
	}

	logger.Info("calldeckd stopped")
}

// notificationHolder keeps the latest fetched notification list.
type notificationHolder struct {
	mu   sync.RWMutex
	list []model.Notification
}

func (h *notificationHolder) HandleNotifications(list []model.Notification) {
	h.mu.Lock()
	h.list = list
	h.mu.Unlock()
}

func (h *notificationHolder) Get() []model.Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]model.Notification, len(h.list))
	copy(out, h.list)
	return out
}

// createHealthHandler creates the HTTP handler for health and debug endpoints.
func createHealthHandler(cfg *config.DashboardConfig, core *dashboard.Client, writer *archive.EventWriter, notifs *notificationHolder) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(cfg.Health.Path, func(w http.ResponseWriter, r *http.Request) {
		stats := core.Stats()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		state := core.ConnectionState()
		health.Components["connection"] = string(state)
		if !core.IsConnected() {
			health.Status = "degraded"
		}

		health.Components["store"] = map[string]interface{}{
			"calls":  core.Store().Len(),
			"active": len(core.Store().ActiveCalls()),
		}
		health.Components["router"] = map[string]interface{}{
			"received": stats.EventsReceived,
			"applied":  stats.EventsApplied,
			"pending":  stats.PendingInteractions,
		}
		if writer != nil {
			wm := writer.Stats()
			health.Components["archive"] = map[string]interface{}{
				"inserts": wm.Inserts,
				"errors":  wm.Errors,
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/calls", func(w http.ResponseWriter, r *http.Request) {
		calls := core.Store().ActiveCalls()

		// Limit to first 100 for debugging
		limit := 100
		showing := calls
		if len(showing) > limit {
			showing = showing[:limit]
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count":   len(calls),
			"showing": len(showing),
			"calls":   showing,
		})
	})

	mux.HandleFunc("/debug/notifications", func(w http.ResponseWriter, r *http.Request) {
		list := notifs.Get()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count":         len(list),
			"notifications": list,
		})
	})

	mux.HandleFunc("/debug/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		held := core.Held()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"count":  len(held),
			"topics": held,
		})
	})

	return mux
}
