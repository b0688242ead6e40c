// Package main provides the entrypoint for the FileGrid background
// worker: the retention sweeper and the scan result consumer.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/filegrid/filegrid/internal/audit"
	"github.com/filegrid/filegrid/internal/database"
	"github.com/filegrid/filegrid/internal/featureflags"
	"github.com/filegrid/filegrid/internal/file"
	"github.com/filegrid/filegrid/internal/folder"
	"github.com/filegrid/filegrid/internal/retention"
	"github.com/filegrid/filegrid/internal/storage"
	"github.com/filegrid/filegrid/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "filegrid-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting FileGrid worker")

	// Worker also exposes a health endpoint for the orchestrator
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	auditRecorder := audit.NewRecorder(audit.NewPostgresRepository(pool), log)

	cdnBaseURL := os.Getenv("CDN_BASE_URL")
	if cdnBaseURL == "" {
		cdnBaseURL = "http://localhost:9000"
	}
	blobClient := storage.NewClient(storage.DefaultConfig(cdnBaseURL, os.Getenv("CDN_API_KEY")))

	fileRepo := file.NewPostgresRepository(pool)
	folderRepo := folder.NewPostgresRepository(pool)
	retentionService := retention.NewService(retention.NewPostgresRepository(pool), fileRepo, folderRepo, blobClient, auditRecorder, log)

	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository:   featureflags.NewPostgresRepository(pool),
		Logger:       log,
		CacheTTL:     1 * time.Minute,
		DefaultFlags: featureflags.DefaultFlags(),
	})

	// Retention sweeper
	sweepInterval := time.Hour
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		parsed, parseErr := time.ParseDuration(v)
		if parseErr != nil {
			log.Fatal().Err(parseErr).Msg("invalid SWEEP_INTERVAL")
		}
		sweepInterval = parsed
	}
	sweeper := worker.NewSweeper(retentionService, sweepInterval, log)
	go sweeper.Run(ctx)

	// Scan result consumer
	applier := worker.NewResultApplier(fileRepo, ffService, log)
	projectID := os.Getenv("PUBSUB_PROJECT_ID")
	subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
	if subscription == "" {
		subscription = "scan-results"
	}

	var consumer *worker.PubSubHandler
	if projectID != "" {
		consumer, err = worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			Applier:          applier,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create scan result consumer")
		}
		go func() {
			if recvErr := consumer.Start(ctx); recvErr != nil && ctx.Err() == nil {
				log.Error().Err(recvErr).Msg("scan result consumer stopped")
			}
		}()
	} else {
		log.Warn().Msg("PUBSUB_PROJECT_ID not set - scan results will not be consumed")
	}

	// Create HTTP server for health checks
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":"%s"}`, Version)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Start health check server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if serveErr := server.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Error().Err(serveErr).Msg("health server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	if consumer != nil {
		if closeErr := consumer.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close scan result consumer")
		}
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
