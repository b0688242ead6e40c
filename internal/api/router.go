// Package api provides the HTTP API for FileGrid.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/filegrid/filegrid/internal/api/handler"
	"github.com/filegrid/filegrid/internal/api/middleware"
	"github.com/filegrid/filegrid/internal/audit"
	"github.com/filegrid/filegrid/internal/featureflags"
	"github.com/filegrid/filegrid/internal/file"
	"github.com/filegrid/filegrid/internal/folder"
	"github.com/filegrid/filegrid/internal/identity"
	"github.com/filegrid/filegrid/internal/retention"
	"github.com/filegrid/filegrid/internal/share"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version            string
	BuildTime          string
	Logger             zerolog.Logger
	ServiceName        string
	Metrics            *middleware.Metrics
	DB                 handler.Pinger
	Blobs              handler.BlobStore
	IdentityService    *identity.Service
	FileService        *file.Service
	FolderService      *folder.Service
	RetentionService   *retention.Service
	ShareService       *share.Service
	AuditRecorder      *audit.Recorder
	FeatureFlagService *featureflags.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "filegrid-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction
	r.Use(middleware.SecurityHeaders)      // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS)           // TLS enforcement (enabled via REQUIRE_TLS=true)
	r.Use(middleware.ContentTypeJSON)      // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.DB)
	sessionHandler := handler.NewSessionHandler(cfg.IdentityService)
	fileHandler := handler.NewFileHandler(cfg.FileService, cfg.Blobs)
	folderHandler := handler.NewFolderHandler(cfg.FolderService)
	retentionHandler := handler.NewRetentionHandler(cfg.RetentionService)
	shareHandler := handler.NewShareHandler(cfg.ShareService, cfg.Blobs)
	auditHandler := handler.NewAuditHandler(cfg.AuditRecorder)
	apiKeyHandler := handler.NewAPIKeyHandler(cfg.IdentityService)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService)

	// Create auth middleware
	authMiddleware := middleware.Auth(cfg.IdentityService)

	// Create rate limit middleware for different endpoint categories
	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)           // 10 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByActor(middleware.StandardRateLimit)

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		// Session endpoints - strict rate limiting on the public half
		r.Route("/sessions", func(r chi.Router) {
			r.With(authRateLimit).Post("/", sessionHandler.CreateSession)
			r.With(authMiddleware).Delete("/current", sessionHandler.EndSession)
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			// Status endpoint requires authentication
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Public share redemption - strict rate limiting, no auth
		r.Route("/shares/{shareID}", func(r chi.Router) {
			r.With(authRateLimit).Post("/access", shareHandler.Access)
			r.With(authRateLimit).Get("/download", shareHandler.Download)
			r.With(authMiddleware, standardRateLimit).Delete("/", shareHandler.Revoke)
		})

		// File endpoints (authenticated)
		r.Route("/files", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)
			r.Post("/", fileHandler.RegisterUpload)
			r.Route("/{fileID}", func(r chi.Router) {
				r.Get("/", fileHandler.Get)
				r.Delete("/", fileHandler.Delete)
				r.Patch("/name", fileHandler.Rename)
				r.Patch("/folder", fileHandler.Move)
				r.Put("/risk-level", fileHandler.Classify)
				r.Get("/download", fileHandler.Download)

				// External shares on a file
				r.Get("/shares", shareHandler.ListForFile)
				r.Post("/shares", shareHandler.Create)

				// Retention assignments on a file
				r.Get("/retentions", retentionHandler.ListForFile)
				r.Post("/retentions", retentionHandler.AssignToFile)
				r.Put("/retentions/{retentionID}/legal-hold", retentionHandler.SetLegalHold)
			})
		})

		// Folder endpoints (authenticated)
		r.Route("/folders", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)
			r.Post("/", folderHandler.Create)
			r.Get("/tree", folderHandler.Tree)
			r.Delete("/permissions/{permissionID}", folderHandler.RemovePermission)
			r.Route("/{folderID}", func(r chi.Router) {
				r.Get("/", folderHandler.Get)
				r.Delete("/", folderHandler.Delete)
				r.Put("/personal-data", folderHandler.MarkPersonalData)
				r.Get("/permissions", folderHandler.ListPermissions)
				r.Put("/permissions", folderHandler.UpsertPermission)
				r.Post("/retentions", retentionHandler.AssignToFolder)
			})
		})

		// Retention policy and erasure endpoints (authenticated)
		r.Route("/retention", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)
			r.Route("/policies", func(r chi.Router) {
				r.Get("/", retentionHandler.ListPolicies)
				r.Post("/", retentionHandler.CreatePolicy)
				r.Route("/{policyID}", func(r chi.Router) {
					r.Get("/", retentionHandler.GetPolicy)
					r.Put("/", retentionHandler.UpdatePolicy)
					r.Delete("/", retentionHandler.DeletePolicy)
				})
			})
			r.Get("/proofs", retentionHandler.ListProofs)
			// Erasure walks the whole backlog: strict rate limiting
			r.With(expensiveRateLimit).Post("/erasures", retentionHandler.ProcessErasure)
		})

		// Audit log (authenticated)
		r.With(authMiddleware, standardRateLimit).Get("/audit", auditHandler.List)

		// API keys (authenticated)
		r.Route("/apikeys", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)
			r.Get("/", apiKeyHandler.List)
			r.Post("/", apiKeyHandler.Create)
			r.Delete("/{keyID}", apiKeyHandler.Revoke)
		})

		// Admin endpoints (authenticated) - for internal operations
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(standardRateLimit)

			// Feature flags management
			r.Route("/flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.Put("/", featureFlagsHandler.UpsertFeatureFlag)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
			})
		})
	})

	return r
}
