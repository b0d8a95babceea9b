package handlers

import (
	"context"

	xhttp "github.com/nimasrn/cash-ledger/pkg/http"
	"github.com/nimasrn/cash-ledger/pkg/logger"
)

type HealthService interface {
	Check(ctx context.Context) error
}
type HealthHandler struct {
	healthService HealthService
}

func RegisterHealthRoutes(e *xhttp.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
	e.GET("/health/ready", h.GetReadiness)
}

func NewHealthHandler(healthService HealthService) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
	}
}

func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, xhttp.StatusOK, map[string]string{"status": "ok"})
}

// GetReadiness also pings the database and redis.
func (h *HealthHandler) GetReadiness(ctx *xhttp.RequestCtx) {
	if h.healthService != nil {
		if err := h.healthService.Check(ctx); err != nil {
			logger.Warn("readiness check failed", "error", err)
			writeJSON(ctx, xhttp.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]string{"status": "ok"})
}
