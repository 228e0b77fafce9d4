package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authhandler "github.com/edconde/clinica3s/internal/handler/auth"
	"github.com/edconde/clinica3s/internal/handler/health"
	"github.com/edconde/clinica3s/internal/handler/prometheus"
	"github.com/edconde/clinica3s/internal/middleware"
	"github.com/edconde/clinica3s/pkg/httputil"
)

// Handler is a resource mounted under the authenticated /api group.
type Handler interface {
	RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware)
}

type Handlers struct {
	Auth      *authhandler.Handler
	Health    *health.Handler
	Metrics   *prometheus.Handler
	Resources []Handler
}

type RouterConfig struct {
	Mode             string
	RateLimitEnabled bool
	RateLimit        middleware.RateLimiterConfig
	CORSConfig       middleware.CORSConfig
	RequestTimeout   time.Duration
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) (*Router, error) {
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}
	gin.SetMode(config.Mode)

	validation := middleware.DefaultValidationConfig()
	if err := middleware.RegisterValidators(validation); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		httputil.RespondWithMessage(c, http.StatusNotFound, "route not found")
	})
	engine.NoMethod(func(c *gin.Context) {
		httputil.RespondWithMessage(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Post-processing runs innermost first: Validation renders field errors
	// before ErrorHandler renders anything else.
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.Validation(validation),
	)
	if handlers.Metrics != nil {
		engine.Use(handlers.Metrics.Middleware())
	}
	engine.Use(
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
	)
	if config.RateLimitEnabled {
		engine.Use(middleware.NewRateLimiter(config.RateLimit).RateLimit())
	}

	return &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
	}, nil
}

func (r *Router) Setup() {
	if r.handlers.Health != nil {
		r.handlers.Health.RegisterRoutes(r.engine)
	}
	if r.handlers.Metrics != nil {
		r.engine.GET("/metrics", r.handlers.Metrics.Handler())
	}

	public := r.engine.Group("/api")
	protected := r.engine.Group("/api", r.auth.Authenticate())

	if r.handlers.Auth != nil {
		r.handlers.Auth.RegisterRoutes(public, protected)
	}
	for _, h := range r.handlers.Resources {
		h.RegisterRoutes(protected, r.auth)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
