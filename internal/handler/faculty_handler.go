package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studenthub/hub-api/internal/service"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
	"github.com/studenthub/hub-api/pkg/response"
)

// FacultyHandler exposes mentorship endpoints.
type FacultyHandler struct {
	mentors *service.MentorService
}

// NewFacultyHandler constructs FacultyHandler.
func NewFacultyHandler(mentors *service.MentorService) *FacultyHandler {
	return &FacultyHandler{mentors: mentors}
}

// AssignMentee godoc
// @Summary Assign a mentee to a faculty member
// @Tags Faculty
// @Accept json
// @Produce json
// @Param id path string true "Faculty ID"
// @Param payload body object true "Mentee payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /faculty/{id}/mentees [post]
func (h *FacultyHandler) AssignMentee(c *gin.Context) {
	var payload struct {
		StudentID string `json:"student_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "student_id required"))
		return
	}
	student, err := h.mentors.Assign(c.Request.Context(), payload.StudentID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// ListMentees godoc
// @Summary List a faculty member's mentees
// @Tags Faculty
// @Produce json
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /faculty/{id}/mentees [get]
func (h *FacultyHandler) ListMentees(c *gin.Context) {
	mentees, err := h.mentors.Mentees(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mentees, nil)
}
