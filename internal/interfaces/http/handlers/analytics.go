// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/cinema-backend/internal/domain/analytics"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
)

// AnalyticsService computes the admin dashboard
type AnalyticsService interface {
	GetDashboardStats(ctx context.Context, actor auth.Actor) (*analytics.DashboardStats, error)
	GetSalesAnalytics(ctx context.Context, actor auth.Actor, days int) (*analytics.SalesAnalytics, error)
}

// AnalyticsHandler handles analytics endpoints
type AnalyticsHandler struct {
	analyticsService AnalyticsService
	logger           *logrus.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService AnalyticsService, logger *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger,
	}
}

// GetDashboard handles GET /admin/analytics/dashboard
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	stats, err := h.analyticsService.GetDashboardStats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Dashboard statistics retrieved successfully",
		"data":    stats,
	})
}

// GetSalesAnalytics handles GET /admin/analytics/sales?days=
func (h *AnalyticsHandler) GetSalesAnalytics(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = parsed
	}

	sales, err := h.analyticsService.GetSalesAnalytics(c.Request.Context(), actor, days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Sales analytics retrieved successfully",
		"data":    sales,
	})
}
