package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/http/response"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store     Pinger
	cache     Pinger
	log       *logger.Logger
	startTime time.Time
}

// NewHealthHandler probes the sale store and, when cache is non-nil, the cache.
func NewHealthHandler(store, cache Pinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		cache:     cache,
		log:       log,
		startTime: time.Now().UTC(),
	}
}

type MemoryMetrics struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

type ServicesStatus struct {
	App      string `json:"app"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

type HealthData struct {
	ServicesStatus ServicesStatus `json:"services_status"`
	Uptime         string         `json:"uptime"`
	Memory         MemoryMetrics  `json:"memory"`
	Goroutines     int            `json:"goroutines"`
}

func (h *HealthHandler) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "UP"
		if err := h.store.Ping(ctx); err != nil {
			h.log.Warn("Health check: store down", "error", err)
			dbStatus = "DOWN"
		}

		redisStatus := "DISABLED"
		if h.cache != nil {
			redisStatus = "UP"
			if err := h.cache.Ping(ctx); err != nil {
				h.log.Warn("Health check: cache down", "error", err)
				redisStatus = "DOWN"
			}
		}

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		data := HealthData{
			ServicesStatus: ServicesStatus{
				App:      "UP",
				Database: dbStatus,
				Redis:    redisStatus,
			},
			Uptime: time.Since(h.startTime).String(),
			Memory: MemoryMetrics{
				Alloc:      mem.Alloc,
				TotalAlloc: mem.TotalAlloc,
				Sys:        mem.Sys,
				NumGC:      mem.NumGC,
			},
			Goroutines: runtime.NumGoroutine(),
		}

		status := http.StatusOK
		if dbStatus != "UP" {
			status = http.StatusServiceUnavailable
		}
		response.WriteJSON(w, status, response.Success(data))
	}
}
