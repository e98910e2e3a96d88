package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"clockwise-api/internal/clients"
	"clockwise-api/internal/config"
	"clockwise-api/internal/controllers"
	"clockwise-api/internal/middleware"
	"clockwise-api/internal/repositories/postgres"
	"clockwise-api/internal/scheduler"
	"clockwise-api/internal/services"
	"clockwise-api/pkg/cache"
	"clockwise-api/pkg/database"
	"clockwise-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logrus.Fatal("Invalid configuration: ", err)
	}

	// Initialize logger
	logger.Init(cfg.Logger)
	log := logrus.WithField("service", "clockwise-api")

	log.Info("Starting Clockwise API service...")

	// Initialize database connection
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to Postgres: ", err)
	}
	defer db.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 30*time.Second)
	if err := postgres.EnsureSchema(schemaCtx, db.DB()); err != nil {
		cancelSchema()
		log.Fatal("Failed to prepare database schema: ", err)
	}
	cancelSchema()

	// Initialize Redis cache. The service runs without it.
	cacheClient, err := cache.NewRedisClient(cfg.Cache)
	if err != nil {
		log.Warn("Failed to connect to Redis, running without cache: ", err)
		cacheClient = nil
	} else {
		defer cacheClient.Close()
	}

	// Initialize repositories
	metricsRepo := postgres.NewMetricsRepository(db.DB())

	// Initialize external clients
	marketClient := clients.NewMarketDataClient(cfg.MarketData, cacheClient)
	advisorClient := clients.NewAdvisorClient(cfg.Advisor)

	// Initialize services
	var metricsCache services.MetricsCache
	if cacheClient != nil {
		metricsCache = cacheClient
	}
	metricsService := services.NewMetricsService(metricsRepo, marketClient, metricsCache, cfg.Analytics)
	goalService := services.NewGoalService(advisorClient, cfg.Analytics)

	// Initialize controllers
	portfolioController := controllers.NewPortfolioController(logrus.StandardLogger(), metricsService)
	goalController := controllers.NewGoalController(logrus.StandardLogger(), goalService)
	healthController := controllers.NewHealthController(metricsRepo, cacheClient, marketClient)

	// Start scheduled jobs
	jobs, err := scheduler.New(cfg.Scheduler, marketClient, metricsService)
	if err != nil {
		log.Fatal("Failed to initialize scheduler: ", err)
	}
	if err := jobs.Start(); err != nil {
		log.Fatal("Failed to start scheduler: ", err)
	}

	// Setup HTTP server
	router := setupRouter(cfg, portfolioController, goalController, healthController)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: ", err)
	}

	jobs.Stop()

	log.Info("Server exited")
}

func setupRouter(cfg *config.Config,
	portfolioController *controllers.PortfolioController,
	goalController *controllers.GoalController,
	healthController *controllers.HealthController) *gin.Engine {

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logrus.StandardLogger()))

	auth := middleware.NewAuthMiddleware(cfg.Auth)

	// Health check
	healthController.RegisterRoutes(router.Group("/"))

	api := router.Group("/api")
	{
		// Goal analysis is available to authenticated site users
		goals := api.Group("/")
		goals.Use(auth.ValidateToken())
		goalController.RegisterRoutes(goals)

		// Metrics management is admin-only
		admin := api.Group("/admin")
		admin.Use(auth.ValidateToken())
		admin.Use(auth.RequireAdmin())
		portfolioController.RegisterRoutes(admin)
	}

	return router
}
