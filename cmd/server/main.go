package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dukapos/backend/internal/application/etims"
	domainetims "github.com/dukapos/backend/internal/domain/etims"
	"github.com/dukapos/backend/internal/infrastructure/config"
	"github.com/dukapos/backend/internal/infrastructure/etimsclient"
	"github.com/dukapos/backend/internal/infrastructure/logger"
	"github.com/dukapos/backend/internal/infrastructure/persistence"
	"github.com/dukapos/backend/internal/infrastructure/scheduler"
	"github.com/dukapos/backend/internal/interfaces/http/handler"
	"github.com/dukapos/backend/internal/interfaces/http/middleware"
	"github.com/dukapos/backend/internal/interfaces/http/router"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting DukaPOS eTIMS Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	configRepo := persistence.NewGormIntegrationConfigRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)

	// Protocol client factory. A fresh client is built per operation so a
	// config change takes effect without a restart.
	clientOpts := []etimsclient.Option{
		etimsclient.WithTimeout(cfg.Etims.RequestTimeout),
	}
	if cfg.Etims.BaseURLOverride != "" {
		clientOpts = append(clientOpts, etimsclient.WithBaseURL(cfg.Etims.BaseURLOverride))
	}
	if cfg.Etims.VerifyURLOverride != "" {
		clientOpts = append(clientOpts, etimsclient.WithVerifyBaseURL(cfg.Etims.VerifyURLOverride))
	}
	clientFactory := etims.ClientFactory(func(integrationCfg *domainetims.IntegrationConfig) (domainetims.ProtocolClient, error) {
		return etimsclient.NewClient(integrationCfg, syncLogRepo, log, clientOpts...)
	})

	// Initialize application services
	configService := etims.NewConfigService(configRepo, clientFactory, log)
	builderService := etims.NewInvoiceBuilderService(invoiceRepo, configRepo, log)
	submissionService := etims.NewSubmissionService(invoiceRepo, configRepo, clientFactory, log)
	builderService.SetSubmitter(submissionService)
	auditService := etims.NewAuditService(syncLogRepo)

	// Retry sweep scheduler
	sweepScheduler := scheduler.NewRetrySweepScheduler(submissionService, log, scheduler.RetrySweepSchedulerConfig{
		Enabled:       cfg.Scheduler.Enabled,
		SweepInterval: cfg.Scheduler.SweepInterval,
		BatchSize:     cfg.Scheduler.BatchSize,
		SweepTimeout:  cfg.Scheduler.SweepTimeout,
	})
	if err := sweepScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start retry sweep scheduler", zap.Error(err))
	}

	// Initialize HTTP handlers
	etimsHandler := handler.NewEtimsHandler(
		configService,
		builderService,
		submissionService,
		auditService,
		cfg.Scheduler.BatchSize,
	)
	healthHandler := handler.NewHealthHandler(db, version)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoints (outside API versioning)
	healthHandler.RegisterRoutes(engine)

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(etimsHandler)
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sweepScheduler.Stop(ctx); err != nil {
		log.Warn("Retry sweep scheduler did not stop cleanly", zap.Error(err))
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
