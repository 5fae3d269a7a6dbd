package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studenthub/hub-api/internal/models"
	"github.com/studenthub/hub-api/internal/service"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
	"github.com/studenthub/hub-api/pkg/response"
)

// StudentHandler exposes student profile and portfolio endpoints.
type StudentHandler struct {
	students  *service.StudentService
	portfolio *service.PortfolioService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students *service.StudentService, portfolio *service.PortfolioService) *StudentHandler {
	return &StudentHandler{students: students, portfolio: portfolio}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param institutionId query string false "Filter by institution"
// @Param department query string false "Filter by department"
// @Param batch query string false "Filter by batch"
// @Param search query string false "Search by name or roll number"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var filter models.StudentFilter
	filter.InstitutionID = c.Query("institutionId")
	filter.Department = c.Query("department")
	filter.Batch = c.Query("batch")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	viewer := userFromClaims(claimsFromContext(c))
	students, pagination, err := h.students.List(c.Request.Context(), filter, viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Get godoc
// @Summary Get student profile
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	viewer := userFromClaims(claimsFromContext(c))
	student, err := h.students.Get(c.Request.Context(), c.Param("id"), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Update godoc
// @Summary Update student profile
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [patch]
func (h *StudentHandler) Update(c *gin.Context) {
	var req service.UpdateStudentProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.UpdateProfile(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// ExportPortfolio godoc
// @Summary Export student portfolio
// @Description Stream a verified portfolio as PDF or CSV
// @Tags Students
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param format query string false "pdf or csv"
// @Success 200 {file} binary
// @Router /students/{id}/portfolio/export [get]
func (h *StudentHandler) ExportPortfolio(c *gin.Context) {
	format := service.PortfolioFormat(strings.ToLower(c.DefaultQuery("format", "pdf")))
	export, err := h.portfolio.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	c.Data(http.StatusOK, export.ContentType, export.Content)
}
