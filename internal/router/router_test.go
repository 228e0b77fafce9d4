package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edconde/clinica3s/internal/handler/health"
	"github.com/edconde/clinica3s/internal/handler/prometheus"
	"github.com/edconde/clinica3s/internal/middleware"
	"github.com/edconde/clinica3s/internal/model"
	"github.com/edconde/clinica3s/pkg/auth"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

type pingHandler struct{}

func (pingHandler) RegisterRoutes(r *gin.RouterGroup, a *middleware.AuthMiddleware) {
	r.GET("/ping", a.RequireRoles(model.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pong": true})
	})
}

func newTestRouter(t *testing.T, cfg RouterConfig) (*gin.Engine, auth.JWTService) {
	t.Helper()
	jwtSvc := auth.NewJWTService(auth.Config{Secret: "router-secret", Expiry: time.Hour})

	cfg.Mode = gin.TestMode
	if cfg.CORSConfig.AllowOrigins == nil {
		cfg.CORSConfig = middleware.DefaultCORSConfig()
	}

	r, err := NewRouter(middleware.NewAuthMiddleware(jwtSvc), Handlers{
		Health:    health.NewHandler(okPinger{}),
		Metrics:   prometheus.New(prom.NewRegistry()),
		Resources: []Handler{pingHandler{}},
	}, cfg)
	require.NoError(t, err)
	r.Setup()
	return r.Engine(), jwtSvc
}

func get(engine *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicRoutes(t *testing.T) {
	engine, _ := newTestRouter(t, RouterConfig{RequestTimeout: time.Second})

	w := get(engine, "/health/live", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	assert.Equal(t, http.StatusOK, get(engine, "/health/ready", "").Code)

	w = get(engine, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRouter_ProtectedRoutes(t *testing.T) {
	engine, jwtSvc := newTestRouter(t, RouterConfig{})

	assert.Equal(t, http.StatusUnauthorized, get(engine, "/api/ping", "").Code)

	admin, err := jwtSvc.GenerateAccessToken(auth.Subject{UserID: uuid.New(), Username: "a", Role: "ADMIN"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(engine, "/api/ping", admin).Code)

	rec, err := jwtSvc.GenerateAccessToken(auth.Subject{UserID: uuid.New(), Username: "r", Role: "RECEPTIONIST"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(engine, "/api/ping", rec).Code)
}

func TestRouter_NotFound(t *testing.T) {
	engine, _ := newTestRouter(t, RouterConfig{})

	w := get(engine, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "route not found")

	req := httptest.NewRequest(http.MethodPost, "/health/live", nil)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	engine, _ := newTestRouter(t, RouterConfig{
		RateLimitEnabled: true,
		RateLimit:        middleware.RateLimiterConfig{Rate: 0.001, Burst: 1},
	})

	assert.Equal(t, http.StatusOK, get(engine, "/health/live", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(engine, "/health/live", "").Code)
}
