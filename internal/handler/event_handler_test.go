package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/studenthub/hub-api/internal/middleware"
	"github.com/studenthub/hub-api/internal/models"
)

func TestEventHandlerUpdateParticipationStudentCannotComplete(t *testing.T) {
	handler := NewEventHandler(nil)
	c, w := newTestContext(t, http.MethodPatch, "/events/ev-1/participations/stu-1", []byte(`{"status":"COMPLETED"}`))
	c.Params = gin.Params{{Key: "id", Value: "ev-1"}, {Key: "studentId", Value: "stu-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.UpdateParticipation(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestEventHandlerUpdateParticipationStudentCannotMarkAttended(t *testing.T) {
	handler := NewEventHandler(nil)
	c, w := newTestContext(t, http.MethodPatch, "/events/ev-1/participations/stu-1", []byte(`{"status":"ATTENDED"}`))
	c.Params = gin.Params{{Key: "id", Value: "ev-1"}, {Key: "studentId", Value: "stu-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.UpdateParticipation(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestEventHandlerUpdateParticipationStudentCancelsOthersRegistration(t *testing.T) {
	handler := NewEventHandler(nil)
	c, w := newTestContext(t, http.MethodPatch, "/events/ev-1/participations/stu-2", []byte(`{"status":"CANCELLED"}`))
	c.Params = gin.Params{{Key: "id", Value: "ev-1"}, {Key: "studentId", Value: "stu-2"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.UpdateParticipation(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestEventHandlerUpdateParticipationUnknownStatus(t *testing.T) {
	handler := NewEventHandler(nil)
	c, w := newTestContext(t, http.MethodPatch, "/events/ev-1/participations/stu-1", []byte(`{"status":"MAYBE"}`))
	c.Params = gin.Params{{Key: "id", Value: "ev-1"}, {Key: "studentId", Value: "stu-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "fac-1", Role: models.RoleFaculty})

	handler.UpdateParticipation(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventHandlerUpdateParticipationUnauthorized(t *testing.T) {
	handler := NewEventHandler(nil)
	c, w := newTestContext(t, http.MethodPatch, "/events/ev-1/participations/stu-1", []byte(`{"status":"COMPLETED"}`))

	handler.UpdateParticipation(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
