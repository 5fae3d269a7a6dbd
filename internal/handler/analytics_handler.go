package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studenthub/hub-api/internal/middleware"
	"github.com/studenthub/hub-api/internal/service"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
	"github.com/studenthub/hub-api/pkg/response"
)

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Institution godoc
// @Summary Institution analytics
// @Description Aggregated credit, achievement and skill figures for one institution
// @Tags Analytics
// @Produce json
// @Param institutionId query string true "Institution ID"
// @Success 200 {object} response.Envelope
// @Router /analytics/institution [get]
func (h *AnalyticsHandler) Institution(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	institutionID := c.Query("institutionId")
	if institutionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "institutionId is required"))
		return
	}
	start := time.Now()
	analytics, cacheHit, err := h.analytics.Institution(c.Request.Context(), institutionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, analytics, nil, meta)
}

// System godoc
// @Summary Runtime metrics snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	response.JSON(c, http.StatusOK, h.analytics.System(), nil)
}
