package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/api/handlers"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/config"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/geocode"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/repository"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/review"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/tracking"
	"github.com/salbaldovinos/hoofdirect-sub001/pkg/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting HoofDirect mileage engine", zap.String("port", cfg.ServerPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database migrated successfully")

	tripRepo := repository.NewTripRepository(db.Pool, cfg.UndoWindow)
	settingsRepo := repository.NewSettingsRepository(db.Pool)
	apptRepo := repository.NewAppointmentRepository(db.Pool)
	summaryRepo := repository.NewSummaryRepository(db.Pool, cfg)

	geocoder := geocode.NewClient(cfg.GeocodeBaseURL, cfg.GeocodeEmail, logger)
	if !geocoder.IsConfigured() {
		logger.Warn("Reverse geocoding not configured, trips will carry coordinates only")
	}

	wsHub := ws.NewHub(logger)
	go wsHub.Run()

	reviewQueue := review.NewQueue(cfg, logger, tripRepo, apptRepo, wsHub)
	if err := reviewQueue.Rearm(ctx); err != nil {
		logger.Error("Failed to re-arm pending reviews", zap.Error(err))
	}

	tracker := tracking.NewTracker(cfg, logger, reviewQueue, apptRepo, geocoder, wsHub)
	wsHub.SetInitDataProvider(func() interface{} { return tracker.Status() })

	// Location permission as reported by the device; granted until told otherwise.
	permission := &atomic.Bool{}
	permission.Store(true)

	scheduler := tracking.NewScheduler(cfg, logger, settingsRepo, tracker, permission.Load)
	schedCtx, schedCancel := context.WithCancel(ctx)
	go scheduler.Run(schedCtx)

	handler := handlers.NewHandler(
		logger,
		tripRepo,
		settingsRepo,
		summaryRepo,
		tracker,
		scheduler,
		reviewQueue,
		wsHub,
		permission,
	)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", server.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Stop the scheduler first so an in-progress trip is flushed to the
	// review queue before the process exits.
	schedCancel()
	tracker.Stop(tracking.StopScheduled)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
