// streamwatch connects to the Calldeck push channel and prints live call
// changes to the console.
// Usage: go run ./cmd/streamwatch --config configs/calldeck.local.yaml
//
// The auth token comes from the config file; use ${CALLDECK_TOKEN} expansion
// to keep it out of the file itself.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calldeck/calldeck/internal/config"
	"github.com/calldeck/calldeck/internal/dashboard"
	"github.com/calldeck/calldeck/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/calldeck.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full change JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	if cfg.API.AuthToken == "" {
		logger.Error("auth token required for the push channel")
		logger.Info("set api.auth_token in the config, e.g. \"${CALLDECK_TOKEN}\"")
		os.Exit(1)
	}

	// Assemble and start the sync core
	core := dashboard.New(cfg, logger)

	logger.Info("starting sync core", "ws_url", cfg.API.WSURL)
	if err := core.Start(ctx, cfg.API.AuthToken); err != nil {
		logger.Error("failed to start sync core", "error", err)
		os.Exit(1)
	}

	// Watch everything
	core.SubscribeToAllCalls()
	core.SubscribeToNotifications()

	// Console printer for the change feed
	go printChanges(ctx, core.Store().Watch(), *verbose)

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := core.Stats()
				logger.Info("stats",
					"conn_state", core.ConnectionState(),
					"calls_cached", core.Store().Len(),
					"calls_active", len(core.Store().ActiveCalls()),
					"events_received", stats.EventsReceived,
					"events_applied", stats.EventsApplied,
					"parse_errors", stats.ParseErrors,
					"unknown_events", stats.UnknownEvents,
					"pending_interactions", stats.PendingInteractions,
				)
			}
		}
	}()

	// Report terminal failures; streamwatch does not auto-recover.
	go func() {
		select {
		case <-ctx.Done():
		case <-core.Terminal():
			logger.Error("push channel gave up reconnecting, exiting")
			cancel()
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	core.Stop(shutdownCtx)

	logger.Info("shutdown complete")
}

func printChanges(ctx context.Context, changes <-chan store.CallChange, verbose bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}

			if verbose {
				data, _ := json.MarshalIndent(change, "", "  ")
				fmt.Printf("[CHANGE] %s\n", data)
				continue
			}

			switch {
			case change.Interaction != nil:
				fmt.Printf("[INTERACTION] call=%s speaker=%s content=%q\n",
					change.CallID, change.Interaction.Speaker, change.Interaction.Content)
			case change.Call != nil:
				fmt.Printf("[%s] call=%s status=%s sentiment=%s qa=%.1f agent=%s\n",
					change.Kind, change.CallID, change.Call.Status,
					change.Call.Sentiment, change.Call.QAScore, change.Call.AssignedAgent)
			}
		}
	}
}
