package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mediaforge/generation-ledger/internal/api_gateway"
	"github.com/mediaforge/generation-ledger/internal/api_gateway/service"
	"github.com/mediaforge/generation-ledger/internal/config"
	"github.com/mediaforge/generation-ledger/internal/data/mongo"
	"github.com/mediaforge/generation-ledger/internal/data/postgres"
	"github.com/mediaforge/generation-ledger/internal/domain/metric"
	"github.com/mediaforge/generation-ledger/internal/logger"
	"github.com/mediaforge/generation-ledger/internal/platform/messaging/producers"
	"github.com/mediaforge/generation-ledger/internal/platform/persistence"
	"github.com/mediaforge/generation-ledger/internal/providers"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// The metric store is observational only; an unreachable MongoDB degrades
	// to dropped metrics instead of refusing to start.
	var metricRecorder metric.Recorder = metric.NopRecorder{}
	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Metric store unreachable, metrics will be dropped", "error", err)
		mongoDB = nil
	} else {
		metricRecorder = mongo.NewMetricRepository(log, mongoDB.Database())
	}

	// Initialize Kafka producer for the job dispatch topic
	dispatchProducer, err := producers.NewJobDispatchProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize job dispatch Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	jobRepo := postgres.NewJobRepository(log, postgresDB)
	providerRepo := postgres.NewProviderRepository(log, postgresDB)

	// Initialize the provider registry; a store failure leaves it serving the
	// built-in catalog in degraded mode rather than refusing to start.
	registry := providers.NewRegistry(log, providerRepo)
	if err := registry.Init(appCtx); err != nil {
		log.Error("Failed to initialize provider registry", "error", err)
		os.Exit(1)
	}

	// Initialize services
	generationService := service.NewGenerationService(log, postgresDB, walletRepo, jobRepo, registry, dispatchProducer, metricRecorder)
	walletService := service.NewWalletService(log, walletRepo)
	jobService := service.NewJobService(log, jobRepo)
	providerService := service.NewProviderService(log, registry)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, generationService, walletService, jobService, providerService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before tearing down the connections they use
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = dispatchProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if mongoDB != nil {
		if err = mongoDB.Close(shutdownCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
