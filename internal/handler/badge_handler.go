package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studenthub/hub-api/internal/service"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
	"github.com/studenthub/hub-api/pkg/response"
)

// BadgeHandler exposes badge reference data and earned-badge endpoints.
type BadgeHandler struct {
	badges *service.BadgeService
}

// NewBadgeHandler constructs BadgeHandler.
func NewBadgeHandler(badges *service.BadgeService) *BadgeHandler {
	return &BadgeHandler{badges: badges}
}

// List godoc
// @Summary List badge definitions
// @Tags Badges
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /badges [get]
func (h *BadgeHandler) List(c *gin.Context) {
	badges, err := h.badges.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badges, nil)
}

// Create godoc
// @Summary Create badge definition
// @Tags Badges
// @Accept json
// @Produce json
// @Param payload body service.CreateBadgeRequest true "Badge payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /badges [post]
func (h *BadgeHandler) Create(c *gin.Context) {
	var req service.CreateBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	badge, err := h.badges.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, badge)
}

// ListEarned godoc
// @Summary List a student's earned badges
// @Tags Badges
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/badges [get]
func (h *BadgeHandler) ListEarned(c *gin.Context) {
	badges, err := h.badges.ListEarned(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, badges, nil)
}
