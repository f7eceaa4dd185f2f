package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	inventoryapp "github.com/medstock/backend/internal/application/inventory"
	"github.com/medstock/backend/internal/domain/inventory"
	"github.com/medstock/backend/internal/infrastructure/config"
	"github.com/medstock/backend/internal/infrastructure/logger"
	"github.com/medstock/backend/internal/infrastructure/persistence"
	"github.com/medstock/backend/internal/infrastructure/strategy"
	"github.com/medstock/backend/internal/infrastructure/telemetry"
	"github.com/medstock/backend/internal/interfaces/http/handler"
	"github.com/medstock/backend/internal/interfaces/http/middleware"
	"github.com/medstock/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

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

	log.Info("Starting medstock backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	backend, err := persistence.OpenBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open storage backend", zap.Error(err))
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("Error closing storage backend", zap.Error(err))
		}
	}()
	log.Info("Storage backend ready", zap.String("driver", cfg.Storage.Driver))

	registry, err := strategy.NewRegistryWithDefaults(cfg.Inventory.DefaultStrategy)
	if err != nil {
		log.Fatal("Failed to build depletion strategies", zap.Error(err))
	}
	loc, err := cfg.Inventory.Location()
	if err != nil {
		log.Fatal("Invalid inventory timezone", zap.Error(err))
	}
	reportSource, err := inventory.ParseReportSource(cfg.Inventory.ReportSource)
	if err != nil {
		log.Fatal("Invalid report source", zap.Error(err))
	}

	inventoryService := inventoryapp.NewInventoryService(backend.Repository, backend.Scope, log,
		inventoryapp.WithStrategies(registry),
		inventoryapp.WithLocation(loc),
		inventoryapp.WithReportSource(reportSource),
	)

	ledgerMetrics, err := telemetry.NewLedgerMetrics(meterProvider.Meter("medstock.inventory"), inventoryService, log)
	if err != nil {
		log.Fatal("Failed to register ledger metrics", zap.Error(err))
	}
	inventoryService.SetRecorder(ledgerMetrics)

	if cfg.Inventory.SeedOnStartup {
		if _, err := inventoryService.SeedIfEmpty(ctx); err != nil {
			log.Fatal("Failed to seed inventory", zap.Error(err))
		}
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       cfg.Telemetry.MetricsEnabled,
		Logger:        log,
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsConfig(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, cfg.Storage.Driver, backend)
	engine.GET("/health", systemHandler.Health)

	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(
		inventoryHandler,
		handler.NewReportHandler(inventoryService),
		systemHandler,
	)
	r.Setup()
	for _, route := range inventoryHandler.Routes().Routes() {
		log.Debug("Route registered", zap.String("method", route.Method), zap.String("path", r.BasePath()+route.Path))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := ledgerMetrics.Close(); err != nil {
		log.Warn("Error unregistering ledger metrics", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func corsConfig(c config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = c.CORSAllowOrigins
	if len(c.CORSAllowMethods) > 0 {
		cors.AllowMethods = c.CORSAllowMethods
	}
	if len(c.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = c.CORSAllowHeaders
	}
	return cors
}
