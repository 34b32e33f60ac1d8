package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nestling-app/nestling-api/internal/database"
	"github.com/nestling-app/nestling-api/internal/queue"
)

// HealthChecker handles health check requests.
type HealthChecker struct {
	db       *database.DB
	jobQueue queue.JobQueue
}

// NewHealthChecker creates a new health checker. jobQueue may be nil when
// trace export is disabled.
func NewHealthChecker(db *database.DB, jobQueue queue.JobQueue) *HealthChecker {
	return &HealthChecker{db: db, jobQueue: jobQueue}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint. Extended mode probes the
// database and the trace queue.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if mode == "extended" {
		checks := make(map[string]string)

		if err := h.checkDatabase(r.Context()); err != nil {
			response.Status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}

		if h.jobQueue != nil {
			if err := h.jobQueue.HealthCheck(r.Context()); err != nil {
				response.Status = "unhealthy"
				checks["trace_queue"] = "unhealthy: " + err.Error()
			} else {
				checks["trace_queue"] = "healthy"
			}
		}

		response.Checks = checks

		statusCode := http.StatusOK
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(response)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (h *HealthChecker) checkDatabase(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return h.db.PingContext(ctx)
}
