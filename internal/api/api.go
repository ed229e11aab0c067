// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/andresuchdata/gallery-feed/internal/api/handlers"
	"github.com/andresuchdata/gallery-feed/internal/api/middleware"
	"github.com/andresuchdata/gallery-feed/internal/cache"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Gallery     handlers.GalleryReader
	GalleryTier *cache.Tier
	Orders      handlers.OrderSubmitter
}

// Options are the router settings that do not come from Services.
type Options struct {
	AllowedOrigins []string
	// Registry receives the HTTP metrics and is served at /metrics. Nil disables both.
	Registry *prometheus.Registry
}

func NewRouter(services *Services, opts Options) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	if opts.Registry != nil {
		httpMetrics, err := middleware.NewHTTPMetrics(opts.Registry)
		if err != nil {
			log.Warn().Err(err).Msg("api: http metrics disabled")
		} else {
			router.Use(middleware.Metrics(httpMetrics))
		}
	}

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Cache-Control", "Pragma", "Expires", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.AllowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(opts.AllowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	var tier *cache.Tier
	if services != nil {
		tier = services.GalleryTier
	}
	router.GET("/health", handlers.Health(tier))

	if opts.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}

	apiGroup := router.Group("/api")

	if services != nil {
		if services.Gallery != nil {
			galleryHandler := handlers.NewGalleryHandler(services.Gallery)
			apiGroup.GET("/gallery", galleryHandler.GetGallery)
		}

		if services.Orders != nil {
			orderHandler := handlers.NewOrderHandler(services.Orders)
			apiGroup.POST("/order", orderHandler.SubmitOrder)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
