package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/studenthub/hub-api/internal/middleware"
	"github.com/studenthub/hub-api/internal/models"
)

func newTestContext(t *testing.T, method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestAchievementHandlerSubmitUnauthorized(t *testing.T) {
	handler := NewAchievementHandler(nil, nil)
	c, w := newTestContext(t, http.MethodPost, "/achievements", []byte(`{}`))

	handler.Submit(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAchievementHandlerSubmitInvalidBody(t *testing.T) {
	handler := NewAchievementHandler(nil, nil)
	c, w := newTestContext(t, http.MethodPost, "/achievements", []byte(`not json`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAchievementHandlerDecideUnknownStatus(t *testing.T) {
	handler := NewAchievementHandler(nil, nil)
	c, w := newTestContext(t, http.MethodPatch, "/achievements/ach-1", []byte(`{"status":"MAYBE"}`))
	c.Params = gin.Params{{Key: "id", Value: "ach-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "fac-1", Role: models.RoleFaculty})

	handler.Decide(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAchievementHandlerDecideUnauthorized(t *testing.T) {
	handler := NewAchievementHandler(nil, nil)
	c, w := newTestContext(t, http.MethodPatch, "/achievements/ach-1", []byte(`{"status":"APPROVED"}`))
	c.Params = gin.Params{{Key: "id", Value: "ach-1"}}

	handler.Decide(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
