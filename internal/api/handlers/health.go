package handlers

import (
	"context"
	"net/http"

	"github.com/finbright/daytrade/backend/pkg/database"
	"github.com/finbright/daytrade/backend/pkg/logger"
)

// DBHealthChecker is the slice of *database.DB the health endpoint needs.
type DBHealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// HealthHandler reports process and database health.
type HealthHandler struct {
	db     DBHealthChecker
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db DBHealthChecker, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: log,
	}
}

// GetHealth returns overall service health.
// GET /health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus, err := h.db.HealthCheck(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Database health check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "degraded",
			"service":  "daytrade-engine",
			"database": dbStatus,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"service":  "daytrade-engine",
		"database": dbStatus,
	})
}
