package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/repscan/app-scanner/internal/chatops"
	"github.com/repscan/app-scanner/internal/config"
	"github.com/repscan/app-scanner/internal/narrative"
	"github.com/repscan/app-scanner/internal/orchestrator"
	"github.com/repscan/app-scanner/internal/providers"
	"github.com/repscan/app-scanner/internal/providers/triage"
	"github.com/repscan/app-scanner/internal/providers/virustotal"
	"github.com/repscan/app-scanner/internal/server"
	"github.com/repscan/app-scanner/internal/store"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	logger.Info("Starting reputation scanner")

	// Load configuration once; everything downstream receives it by
	// injection.
	cfg := config.Load()
	logger.Info("Configuration loaded",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.Bool("virustotal", cfg.VTAPIKey != ""),
		zap.Bool("triage", cfg.TriageAPIKey != ""),
		zap.Bool("narrative", cfg.AIAPIKey != ""))
	if cfg.VTAPIKey == "" {
		logger.Warn("VT_API_KEY is not set; scanning is disabled until a provider is configured")
	}

	// Reputation providers
	registry := providers.NewRegistry()
	registry.Register(virustotal.NewClient(cfg.VTAPIKey, cfg.ProviderTimeout, logger))
	registry.Register(triage.NewClient(cfg.TriageAPIKey, cfg.ProviderTimeout, logger))

	// Narrative generator
	generator := narrative.NewOpenAIGenerator(cfg.AIAPIKey, cfg.AIModel, cfg.NarrativeTimeout, logger)

	orch := orchestrator.New(registry, generator, logger)

	// Result store: Valkey when an address is configured, in-memory
	// otherwise.
	var results store.ResultStore
	if cfg.StoreAddress != "" {
		valkeyStore, err := store.NewValkeyStore(&store.Config{
			Address:  cfg.StoreAddress,
			Username: cfg.StoreUsername,
			Password: cfg.StorePassword,
			Database: cfg.StoreDatabase,
			TTL:      cfg.ResultTTL,
		})
		if err != nil {
			logger.Fatal("Failed to connect to result store", zap.Error(err))
		}
		results = valkeyStore
		logger.Info("Using Valkey result store", zap.String("address", cfg.StoreAddress))
	} else {
		results = store.NewMemoryStore(cfg.ResultTTL)
	}
	defer results.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional chat bridge
	if cfg.AMQPURL != "" {
		bridge, err := chatops.NewBridge(cfg.AMQPURL, orch, logger)
		if err != nil {
			logger.Fatal("Failed to start chat bridge", zap.Error(err))
		}
		defer bridge.Close()
		go func() {
			if err := bridge.Listen(ctx); err != nil && ctx.Err() == nil {
				logger.Error("Chat bridge stopped", zap.Error(err))
			}
		}()
	}

	srv := server.NewServer(cfg, orch, results, logger)

	// Handle termination signals
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	// Start the server in a goroutine
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for termination signal
	sig := <-signalChan
	logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	cancel()
	srv.Stop()
	logger.Info("Server shutdown complete")
}
