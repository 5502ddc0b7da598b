package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"finreports/internal/app"
	"finreports/internal/config"
	"finreports/internal/database"
	"finreports/internal/handler"
	"finreports/internal/logging"
	"finreports/internal/metrics"
	"finreports/internal/middleware"
	"finreports/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// @title           Financial Reports API
// @version         1.0
// @description     Report lifecycle, templates and parameter binding.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is configured from cfg, so fall back to the default one.
		fallback := logging.New(config.LogConfig{})
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(cfg.Log)
	if cfg.Auth.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.Database.DSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	logger.Info().Str("host", cfg.Database.Host).Msg("connected to PostgreSQL")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run(ctx)

	services := app.New(cfg, db, wsHub, m)
	auth := middleware.NewAuthenticator(cfg.Auth.Secret())

	reportHandler := handler.NewReportHandler(services.Reports, auth)
	generationHandler := handler.NewGenerationHandler(services.Lifecycle, auth)
	templateHandler := handler.NewTemplateHandler(services.Templates, auth)
	publicHandler := handler.NewPublicHandler(services.Reports, middleware.NewIPRateLimiter(cfg.Public.Rate, cfg.Public.Burst))
	auditHandler := handler.NewAuditHandler(services.Audit, auth)

	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", logging.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", logging.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, auth, c)
	})

	api := router.Group("")
	reportHandler.RegisterRoutes(api)
	generationHandler.RegisterRoutes(api)
	templateHandler.RegisterRoutes(api)
	publicHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	if cfg.Scheduler.Enabled {
		go services.Scanner.Run(ctx)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
