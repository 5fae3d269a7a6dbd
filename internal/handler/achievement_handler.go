package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studenthub/hub-api/internal/models"
	"github.com/studenthub/hub-api/internal/service"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
	"github.com/studenthub/hub-api/pkg/response"
)

// AchievementHandler exposes the achievement lifecycle endpoints.
type AchievementHandler struct {
	achievements *service.AchievementService
	metrics      *service.MetricsService
}

// NewAchievementHandler constructs AchievementHandler.
func NewAchievementHandler(achievements *service.AchievementService, metrics *service.MetricsService) *AchievementHandler {
	return &AchievementHandler{achievements: achievements, metrics: metrics}
}

// Submit godoc
// @Summary Submit achievement
// @Description Student submits an accomplishment for review
// @Tags Achievements
// @Accept json
// @Produce json
// @Param payload body service.SubmitAchievementRequest true "Achievement payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /achievements [post]
func (h *AchievementHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SubmitAchievementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.StudentID = claims.UserID

	achievement, err := h.achievements.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, achievement)
}

// Decide godoc
// @Summary Decide on an achievement
// @Description Approve or reject a pending achievement
// @Tags Achievements
// @Accept json
// @Produce json
// @Param id path string true "Achievement ID"
// @Param payload body service.DecideAchievementRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /achievements/{id} [patch]
func (h *AchievementHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.DecideAchievementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	var (
		achievement *models.AchievementDetail
		err         error
	)
	switch req.Status {
	case models.AchievementApproved:
		achievement, err = h.achievements.Approve(c.Request.Context(), c.Param("id"), claims.UserID, req.Credits)
	case models.AchievementRejected:
		achievement, err = h.achievements.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req.RejectionReason)
	default:
		err = appErrors.Clone(appErrors.ErrValidation, "status must be APPROVED or REJECTED")
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordDecision(strings.ToLower(string(req.Status)))
	response.JSON(c, http.StatusOK, achievement, nil)
}

// Get godoc
// @Summary Get achievement detail
// @Tags Achievements
// @Produce json
// @Param id path string true "Achievement ID"
// @Success 200 {object} response.Envelope
// @Router /achievements/{id} [get]
func (h *AchievementHandler) Get(c *gin.Context) {
	achievement, err := h.achievements.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, achievement, nil)
}

// List godoc
// @Summary List achievements
// @Tags Achievements
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param categoryId query string false "Filter by category"
// @Param status query string false "Filter by status"
// @Param department query string false "Filter by department"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /achievements [get]
func (h *AchievementHandler) List(c *gin.Context) {
	var filter models.AchievementFilter
	filter.StudentID = c.Query("studentId")
	filter.CategoryID = c.Query("categoryId")
	filter.Status = models.AchievementStatus(strings.ToUpper(c.Query("status")))
	filter.Department = c.Query("department")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	// students only ever see their own submissions
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		filter.StudentID = claims.UserID
	}

	achievements, pagination, err := h.achievements.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, achievements, pagination)
}
