package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"bulk-mail-verify-go/internal/scheduler"
	"bulk-mail-verify-go/internal/store"
	"bulk-mail-verify-go/internal/verifier"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db        *gorm.DB
	store     *store.Store
	verifier  *verifier.Service
	scheduler *scheduler.Scheduler
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *gorm.DB, st *store.Store, v *verifier.Service, s *scheduler.Scheduler) *Handlers {
	return &Handlers{db: db, store: st, verifier: v, scheduler: s}
}

// SetupRoutes sets up all HTTP routes. The limit middleware, when non-nil,
// guards the API group only; health and metrics stay open for probes.
func (h *Handlers) SetupRoutes(router *gin.Engine, limit gin.HandlerFunc) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	if limit != nil {
		api.Use(limit)
	}
	{
		api.GET("/batches", h.GetBatches)
		api.GET("/batches/:id", h.GetBatch)

		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.POST("/scheduler/run-once", h.RunOnce)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}
