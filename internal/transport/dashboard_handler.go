package transport

import (
	"net/http"

	"stockroom/internal/middleware"
	"stockroom/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// DashboardHandler serves the landing-view statistics
type DashboardHandler struct {
	dashboard service.DashboardService
	logger    *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboard service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

// RegisterRoutes registers the dashboard route
func (h *DashboardHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/api/dashboard", h.Summary)
	})
}

// Summary returns entity counts and recent orders
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboard.Summary(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, summary)
}
