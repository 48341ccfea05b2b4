package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/handler"
	"github.com/stemsi/lms-backend/internal/metrics"
	"github.com/stemsi/lms-backend/internal/middleware"
	"github.com/stemsi/lms-backend/internal/service"
	"github.com/stemsi/lms-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *service.AuthService) {
	t.Helper()

	cfg := &config.Config{GinMode: gin.TestMode}
	auth := service.NewAuthService("router-secret")
	svc := service.NewExamSessionService(nil, store.NewSessionStore(), store.NewAnswerKeyStore(nil), nil, config.SubmissionAllowResubmit, zerolog.Nop())

	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	handlers := &Handlers{
		StudentPortal: handler.NewStudentPortalHandler(svc, zerolog.Nop()),
		ExamAdmin:     handler.NewExamAdminHandler(svc, nil, zerolog.Nop()),
		WS:            handler.NewWSHandler(svc, zerolog.Nop(), nil),
	}
	return SetupRouter(auth, handlers, middleware.NewRateLimiter(100, time.Minute), reg, cfg), auth
}

func TestHealthAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRoutesRequireMatchingToken(t *testing.T) {
	r, auth := newTestRouter(t)
	studentToken, err := auth.IssueToken(service.TokenTypeStudent, "student-1", "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		method string
		path   string
		token  string
		status int
	}{
		{http.MethodPost, "/api/v1/student/exams/abc/start", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/student/sessions/nope", studentToken, http.StatusGone},
		{http.MethodPut, "/api/v1/admin/exams/abc/answer-key", studentToken, http.StatusForbidden},
		{http.MethodGet, "/ws/v1/student/sessions/nope/stream", "", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, "%s %s", tc.method, tc.path)
	}
}
