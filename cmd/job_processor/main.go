package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mediaforge/generation-ledger/internal/config"
	"github.com/mediaforge/generation-ledger/internal/data/mongo"
	"github.com/mediaforge/generation-ledger/internal/data/postgres"
	"github.com/mediaforge/generation-ledger/internal/domain/metric"
	"github.com/mediaforge/generation-ledger/internal/job_processor/consumer"
	"github.com/mediaforge/generation-ledger/internal/job_processor/reconciler"
	"github.com/mediaforge/generation-ledger/internal/job_processor/service"
	"github.com/mediaforge/generation-ledger/internal/logger"
	"github.com/mediaforge/generation-ledger/internal/platform/messaging/consumers"
	"github.com/mediaforge/generation-ledger/internal/platform/messaging/producers"
	"github.com/mediaforge/generation-ledger/internal/platform/persistence"
	"github.com/mediaforge/generation-ledger/internal/platform/storage"
	"github.com/mediaforge/generation-ledger/internal/providers"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("job_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Job Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	jobRepo := postgres.NewJobRepository(log, postgresDB)
	providerRepo := postgres.NewProviderRepository(log, postgresDB)

	// Initialize the provider registry and adapter factory
	registry := providers.NewRegistry(log, providerRepo)
	if err := registry.Init(appCtx); err != nil {
		log.Error("Failed to initialize provider registry", "error", err)
		os.Exit(1)
	}
	adapterFactory := providers.NewAdapterFactory(&cfg.Providers)

	// Initialize artifact storage
	artifactStore, err := storage.NewLocalArtifactStore(log, &cfg.Storage)
	if err != nil {
		log.Error("Failed to initialize artifact store", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	// Initialize the orchestrator behind a worker pool
	orchestrator := service.NewOrchestratorService(
		log,
		jobRepo,
		walletRepo,
		registry,
		adapterFactory,
		artifactStore,
		metricRecorder,
		cfg.Retry,
	)
	processingService, err := service.NewWorkerPoolProcessingService(
		orchestrator,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize job event handler
	jobEventHandler := consumer.NewJobEventHandler(
		log,
		processingService,
		dlqProducer,
	)

	// Initialize the settlement reconciler
	settlementReconciler := reconciler.NewReconciler(
		&cfg.Reconciler,
		jobRepo,
		walletRepo,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.DispatchTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.DispatchTopic, cfg.Kafka.ConsumerGroup, jobEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start the settlement reconciler in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		settlementReconciler.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool
	processingService.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if mongoDB != nil {
		if err = mongoDB.Close(shutdownCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
		}
	}

	// Final status
	if serviceErr != nil {
		log.Error("Job Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Job Processor shutdown completed with errors")
	} else {
		log.Info("Job Processor shutdown completed successfully")
	}
}
