// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/gallery-feed/internal/api"
	"github.com/andresuchdata/gallery-feed/internal/cache"
	"github.com/andresuchdata/gallery-feed/internal/config"
	"github.com/andresuchdata/gallery-feed/internal/drive"
	"github.com/andresuchdata/gallery-feed/internal/gallery"
	"github.com/andresuchdata/gallery-feed/internal/metadata"
	"github.com/andresuchdata/gallery-feed/internal/order"
	"github.com/andresuchdata/gallery-feed/internal/telemetry"
	"github.com/andresuchdata/gallery-feed/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Tracing disabled")
		shutdownTracing = func(context.Context) error { return nil }
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Google APIs
	googleClient, err := drive.NewHTTPClient(ctx, drive.Credentials{
		ClientID:        cfg.Google.ClientID,
		ClientSecret:    cfg.Google.ClientSecret,
		RedirectURI:     cfg.Google.RedirectURI,
		RefreshToken:    cfg.Google.RefreshToken,
		CredentialsJSON: cfg.Google.CredentialsJSON,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to build Google client")
	}

	driveService, err := drive.NewService(ctx, googleClient)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize Drive service")
	}

	// Gallery pipeline
	galleryMetrics, err := gallery.NewMetrics(reg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to register gallery metrics")
	}
	cacheMetrics, err := cache.NewMetrics(reg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to register cache metrics")
	}

	snapshots, err := cache.NewSnapshotStore(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis unavailable, process tier will not be persisted")
		snapshots = cache.NewNoopSnapshotStore()
	}
	defer snapshots.Close()

	downloads := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	extractor := metadata.NewExtractor(downloads, drive.DownloadURL)

	aggregator := gallery.NewAggregator(gallery.AggregatorConfig{
		FolderID:    cfg.Google.DriveFolderID,
		PageSize:    cfg.Gallery.PageSize,
		Concurrency: cfg.Gallery.Concurrency,
	}, driveService, driveService, extractor, galleryMetrics)

	galleryService := gallery.NewService(aggregator, cfg.GalleryTTL(),
		cache.WithSnapshotStore(snapshots),
		cache.WithMetrics(cacheMetrics),
	)

	// Orders
	var recorder order.Recorder
	sheetsLog, err := order.NewSheetsLog(ctx, googleClient, cfg.Google.SheetID)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Order log unavailable")
	} else {
		recorder = sheetsLog
	}
	if cfg.Google.SheetID == "" {
		logger.Log.Warn().Msg("No Google Sheet ID configured, order submissions will fail")
	}

	router := api.NewRouter(&api.Services{
		Gallery:     galleryService,
		GalleryTier: galleryService.Tier(),
		Orders:      order.NewService(recorder),
	}, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Registry:       reg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(router, "gallery-feed"),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Warm the process tier.
	go func() {
		warmLog := logger.Component("warmup")
		items, err := galleryService.Items(ctx, false)
		if err != nil {
			warmLog.Warn().Err(err).Msg("Initial gallery aggregation failed")
			return
		}
		warmLog.Info().Int("items", len(items)).Msg("Gallery cache warmed")
	}()

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Log.Warn().Err(err).Msg("Tracer shutdown failed")
	}

	logger.Log.Info().Msg("Server exiting")
}
