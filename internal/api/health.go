package api

import (
	"net/http"
	"time"

	"github.com/snarg/scribed/internal/database"
	"github.com/snarg/scribed/internal/encode"
	"github.com/snarg/scribed/internal/events"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

// HealthHandler reports service liveness plus the state of optional
// subsystems. A nil db or publisher reports as not configured, not broken.
type HealthHandler struct {
	db        *database.DB
	publisher *events.Publisher
	version   string
	startTime time.Time
}

func NewHealthHandler(db *database.DB, publisher *events.Publisher, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		publisher: publisher,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	if h.db != nil {
		if err := h.db.HealthCheck(r.Context()); err != nil {
			checks["database"] = "error"
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not_configured"
	}

	if h.publisher != nil {
		if h.publisher.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	// Compression is optional; without ffmpeg oversized files chunk instead.
	if encode.CheckFFmpeg() {
		checks["ffmpeg"] = "ok"
	} else {
		checks["ffmpeg"] = "unavailable"
	}

	WriteJSON(w, httpStatus, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	})
}
