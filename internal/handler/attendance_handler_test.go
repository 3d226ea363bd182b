package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutor-center-api/internal/dto"
	"github.com/noah-isme/tutor-center-api/internal/middleware"
	"github.com/noah-isme/tutor-center-api/internal/models"
	appErrors "github.com/noah-isme/tutor-center-api/pkg/errors"
)

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// testAuth injects claims for the role named in the X-Test-Role header.
func testAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetHeader("X-Test-Role")
		if role == "" {
			c.Next()
			return
		}
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.UserRole(role)})
		c.Next()
	}
}

type stubAttendanceService struct {
	resp     *dto.ProjectionResponse
	err      error
	lastDate time.Time
	present  *bool
	calls    int
}

func (s *stubAttendanceService) RecordAttendance(_ context.Context, studentID string, date time.Time, present bool, _ *models.JWTClaims) (*dto.ProjectionResponse, error) {
	s.calls++
	s.lastDate = date
	s.present = &present
	if s.err != nil {
		return nil, s.err
	}
	if s.resp != nil {
		return s.resp, nil
	}
	ledger := models.SessionLedger{StudentID: studentID, UnpaidSessions: 1}
	return &dto.ProjectionResponse{StudentID: studentID, Ledger: ledger}, nil
}

func buildAttendanceRouter(svc *stubAttendanceService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(testAuth())
	router.POST("/students/:id/attendance", NewAttendanceHandler(svc).Mark)
	return router
}

func TestAttendanceHandlerMark(t *testing.T) {
	svc := &stubAttendanceService{}
	router := buildAttendanceRouter(svc)

	body := bytes.NewBufferString(`{"date":"2026-03-14","present":true}`)
	req, _ := http.NewRequest(http.MethodPost, "/students/student-1/attendance", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(models.RoleAdmin))

	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"unpaid_sessions":1`)
	assert.Equal(t, 1, svc.calls)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), svc.lastDate)
	require.NotNil(t, svc.present)
	assert.True(t, *svc.present)
}

func TestAttendanceHandlerMarkUnauthorized(t *testing.T) {
	svc := &stubAttendanceService{}
	router := buildAttendanceRouter(svc)

	body := bytes.NewBufferString(`{"date":"2026-03-14","present":true}`)
	req, _ := http.NewRequest(http.MethodPost, "/students/student-1/attendance", body)
	req.Header.Set("Content-Type", "application/json")

	resp := performRequest(router, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, 0, svc.calls)
}

func TestAttendanceHandlerMarkBadDate(t *testing.T) {
	svc := &stubAttendanceService{}
	router := buildAttendanceRouter(svc)

	body := bytes.NewBufferString(`{"date":"14-03-2026","present":true}`)
	req, _ := http.NewRequest(http.MethodPost, "/students/student-1/attendance", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(models.RoleAdmin))

	resp := performRequest(router, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "YYYY-MM-DD")
	assert.Equal(t, 0, svc.calls)
}

func TestAttendanceHandlerMarkServiceError(t *testing.T) {
	svc := &stubAttendanceService{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")}
	router := buildAttendanceRouter(svc)

	body := bytes.NewBufferString(`{"date":"2026-03-14","present":false}`)
	req, _ := http.NewRequest(http.MethodPost, "/students/ghost/attendance", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-Role", string(models.RoleAdmin))

	resp := performRequest(router, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "student not found")
}
