// Package main provides the entrypoint for the FileGrid API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/filegrid/filegrid/internal/api"
	"github.com/filegrid/filegrid/internal/api/middleware"
	"github.com/filegrid/filegrid/internal/audit"
	"github.com/filegrid/filegrid/internal/database"
	"github.com/filegrid/filegrid/internal/featureflags"
	"github.com/filegrid/filegrid/internal/file"
	"github.com/filegrid/filegrid/internal/folder"
	"github.com/filegrid/filegrid/internal/gdpr"
	"github.com/filegrid/filegrid/internal/identity"
	"github.com/filegrid/filegrid/internal/retention"
	"github.com/filegrid/filegrid/internal/share"
	"github.com/filegrid/filegrid/internal/storage"
	"github.com/filegrid/filegrid/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "filegrid-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting FileGrid API")

	// Get configuration from environment
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Connect to database
	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	// Audit trail and GDPR gate
	auditRecorder := audit.NewRecorder(audit.NewPostgresRepository(pool), log)
	gate := gdpr.NewGate(auditRecorder)

	// Identity: session tokens and API keys
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "local-dev-signing-key-change-in-production"
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	jwtService := identity.NewJWTService(identity.JWTConfig{
		SigningKey: jwtSigningKey,
		Issuer:     os.Getenv("JWT_ISSUER"),
		Audience:   os.Getenv("JWT_AUDIENCE"),
	})
	identityService := identity.NewService(identity.NewPostgresRepository(pool), jwtService, auditRecorder, log)
	log.Info().Msg("identity service initialized")

	// Blob storage gateway
	cdnBaseURL := os.Getenv("CDN_BASE_URL")
	if cdnBaseURL == "" {
		cdnBaseURL = "http://localhost:9000"
		log.Warn().Msg("using local CDN gateway default")
	}
	blobClient := storage.NewClient(storage.DefaultConfig(cdnBaseURL, os.Getenv("CDN_API_KEY")))

	// Domain services
	fileRepo := file.NewPostgresRepository(pool)
	folderRepo := folder.NewPostgresRepository(pool)
	folderService := folder.NewService(folderRepo, fileRepo, gate, auditRecorder, log)
	fileService := file.NewService(fileRepo, folderService, gate, auditRecorder, log)
	retentionService := retention.NewService(retention.NewPostgresRepository(pool), fileRepo, folderRepo, blobClient, auditRecorder, log)
	log.Info().Msg("file services initialized")

	// Feature flags with a short cache
	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository:   featureflags.NewPostgresRepository(pool),
		Logger:       log,
		CacheTTL:     1 * time.Minute,
		DefaultFlags: featureflags.DefaultFlags(),
	})
	shareService := share.NewService(share.NewPostgresRepository(pool), fileRepo, gate, ffService, auditRecorder, log)
	log.Info().Msg("share service initialized")

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		DB:                 pool,
		Blobs:              blobClient,
		IdentityService:    identityService,
		FileService:        fileService,
		FolderService:      folderService,
		RetentionService:   retentionService,
		ShareService:       shareService,
		AuditRecorder:      auditRecorder,
		FeatureFlagService: ffService,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
