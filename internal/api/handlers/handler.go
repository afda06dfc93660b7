package handlers

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/repository"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/review"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/tracking"
	"github.com/salbaldovinos/hoofdirect-sub001/pkg/ws"
)

// Handler is the HTTP surface of the mileage engine.
type Handler struct {
	logger       *zap.Logger
	tripRepo     *repository.TripRepository
	settingsRepo *repository.SettingsRepository
	summaryRepo  *repository.SummaryRepository
	tracker      *tracking.Tracker
	scheduler    *tracking.Scheduler
	reviewQueue  *review.Queue
	wsHub        *ws.Hub
	permission   *atomic.Bool
	upgrader     websocket.Upgrader
}

// NewHandler creates the handler.
func NewHandler(
	logger *zap.Logger,
	tripRepo *repository.TripRepository,
	settingsRepo *repository.SettingsRepository,
	summaryRepo *repository.SummaryRepository,
	tracker *tracking.Tracker,
	scheduler *tracking.Scheduler,
	reviewQueue *review.Queue,
	wsHub *ws.Hub,
	permission *atomic.Bool,
) *Handler {
	return &Handler{
		logger:       logger,
		tripRepo:     tripRepo,
		settingsRepo: settingsRepo,
		summaryRepo:  summaryRepo,
		tracker:      tracker,
		scheduler:    scheduler,
		reviewQueue:  reviewQueue,
		wsHub:        wsHub,
		permission:   permission,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		// Tracking pipeline
		api.POST("/tracking/samples", h.IngestSamples)
		api.GET("/tracking/status", h.TrackingStatus)
		api.PUT("/tracking/permission", h.PutPermission)

		// Auto-tracking settings
		api.GET("/settings/auto-tracking", h.GetSettings)
		api.PUT("/settings/auto-tracking", h.PutSettings)

		// Trips (manual write API + range reads)
		api.GET("/trips", h.ListTrips)
		api.GET("/trips/:id", h.GetTrip)
		api.POST("/trips", h.CreateTrip)
		api.PUT("/trips/:id", h.UpdateTrip)
		api.DELETE("/trips/:id", h.DeleteTrip)
		api.POST("/trips/:id/undo", h.UndoDelete)

		// Review queue
		api.GET("/review", h.ListPendingReview)
		api.POST("/review/:id/confirm", h.ConfirmTrip)
		api.POST("/review/:id/discard", h.DiscardTrip)

		// Summary
		api.GET("/summary", h.GetSummary)
	}

	// WebSocket for live tracking state and review notifications
	r.GET("/ws", h.HandleWebSocket)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// HandleWebSocket upgrades the connection and attaches it to the hub.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	go client.WritePump()
	go client.ReadPump()
}
