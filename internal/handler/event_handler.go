package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studenthub/hub-api/internal/models"
	"github.com/studenthub/hub-api/internal/service"
	appErrors "github.com/studenthub/hub-api/pkg/errors"
	"github.com/studenthub/hub-api/pkg/response"
)

// EventHandler exposes event and participation endpoints.
type EventHandler struct {
	events *service.EventService
}

// NewEventHandler constructs EventHandler.
func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// Create godoc
// @Summary Create event
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body service.CreateEventRequest true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.CreatedBy = claims.UserID
	req.InstitutionID = c.Query("institutionId")
	if req.InstitutionID == "" {
		req.InstitutionID = c.GetHeader("X-Institution-ID")
	}

	event, err := h.events.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Get godoc
// @Summary Get event detail
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param institutionId query string false "Filter by institution"
// @Param status query string false "Filter by status"
// @Param from query string false "Events starting after (RFC3339)"
// @Param to query string false "Events starting before (RFC3339)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	var filter models.EventFilter
	filter.InstitutionID = c.Query("institutionId")
	filter.Status = models.EventStatus(strings.ToUpper(c.Query("status")))
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &t
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	events, pagination, err := h.events.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

// UpdateStatus godoc
// @Summary Update event status
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body object true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{id}/status [patch]
func (h *EventHandler) UpdateStatus(c *gin.Context) {
	var payload struct {
		Status models.EventStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status required"))
		return
	}
	event, err := h.events.UpdateStatus(c.Request.Context(), c.Param("id"), payload.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Register godoc
// @Summary Register for event
// @Description Student claims a slot in one of the event's roles
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.RegisterEventRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /events/{id}/participations [post]
func (h *EventHandler) Register(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RegisterEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	participation, err := h.events.Register(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, participation)
}

// UpdateParticipation godoc
// @Summary Update a participation
// @Description Mark attendance, complete, or cancel a participation
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param studentId path string true "Student ID"
// @Param payload body object true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /events/{id}/participations/{studentId} [patch]
func (h *EventHandler) UpdateParticipation(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload struct {
		Status models.ParticipationStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status required"))
		return
	}

	eventID := c.Param("id")
	studentID := c.Param("studentId")

	var (
		participation *models.EventParticipation
		err           error
	)
	switch payload.Status {
	case models.ParticipationAttended:
		// attendance and completion are staff decisions: completion mints credits
		if !canDecideParticipation(claims.Role) {
			err = appErrors.Clone(appErrors.ErrForbidden, "only faculty or admins may record attendance")
			break
		}
		participation, err = h.events.MarkAttended(c.Request.Context(), eventID, studentID)
	case models.ParticipationCompleted:
		if !canDecideParticipation(claims.Role) {
			err = appErrors.Clone(appErrors.ErrForbidden, "only faculty or admins may grant completion")
			break
		}
		participation, err = h.events.Complete(c.Request.Context(), eventID, studentID)
	case models.ParticipationCancelled:
		// students may only cancel their own registration
		if claims.Role == models.RoleStudent && claims.UserID != studentID {
			err = appErrors.ErrForbidden
			break
		}
		participation, err = h.events.CancelRegistration(c.Request.Context(), eventID, studentID)
	default:
		err = appErrors.Clone(appErrors.ErrValidation, "status must be ATTENDED, COMPLETED or CANCELLED")
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, participation, nil)
}

func canDecideParticipation(role models.UserRole) bool {
	switch role {
	case models.RoleFaculty, models.RoleInstitutionAdmin, models.RoleSuperAdmin:
		return true
	}
	return false
}

// ListParticipants godoc
// @Summary List event participants
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/participations [get]
func (h *EventHandler) ListParticipants(c *gin.Context) {
	participations, err := h.events.ListParticipants(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, participations, nil)
}
