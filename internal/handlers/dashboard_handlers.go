package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"licensor/internal/common"
	"licensor/internal/services"
)

type DashboardHandlers struct {
	dashboardService services.DashboardService
	logger           *slog.Logger
}

func NewDashboardHandlers(dashboardService services.DashboardService, logger *slog.Logger) *DashboardHandlers {
	return &DashboardHandlers{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// GetDashboard handles GET /v1/admin/dashboard
//
// @Summary		Dashboard counters
// @Tags		admin
// @Produce		json
// @Success		200	{object}	models.DashboardStats
// @Security	BearerAuth
// @Router		/v1/admin/dashboard [get]
func (h *DashboardHandlers) GetDashboard(c echo.Context) error {
	stats, err := h.dashboardService.Stats(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to compute dashboard stats", "error", err)
		return common.SendServerError(c, "Failed to load dashboard")
	}
	return c.JSON(http.StatusOK, stats)
}
