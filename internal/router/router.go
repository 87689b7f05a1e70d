package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/vaccine-clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/vaccine-clinic-api/internal/middleware"
	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	health   Handler
	metrics  *prometheus.Handler
	bookings Handler
	schedule Handler
	staff    Handler
	audit    Handler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	Timeout          time.Duration
	CORSConfig       middleware.CORSConfig
	SizeLimit        middleware.SizeLimitConfig
	Security         middleware.SecurityConfig
}

// Handlers groups the route owners wired into the engine.
type Handlers struct {
	Health   Handler
	Metrics  *prometheus.Handler
	Bookings Handler
	Schedule Handler
	Staff    Handler
	Audit    Handler
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, config RouterConfig) *Router {
	engine := gin.New() // Use New() instead of Default() for more control

	r := &Router{
		engine:   engine,
		auth:     auth,
		health:   handlers.Health,
		metrics:  handlers.Metrics,
		bookings: handlers.Bookings,
		schedule: handlers.Schedule,
		staff:    handlers.Staff,
		audit:    handlers.Audit,
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = middleware.DefaultTimeoutConfig().Duration
	}
	if config.SizeLimit.MaxBodySize <= 0 {
		config.SizeLimit = middleware.DefaultSizeLimitConfig()
	}

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metrics.Middleware(),
		middleware.SecurityHeaders(config.Security),
		middleware.CORS(config.CORSConfig),
		middleware.SizeLimit(config.SizeLimit),
		middleware.Timeout(middleware.TimeoutConfig{Duration: timeout}),
	)

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	// Add version header
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.setupHealthCheck(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	r.health.RegisterRoutes(rg)
	rg.GET("/health/metrics", r.metrics.Handler())
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	// role guards for these live in the services
	r.bookings.RegisterRoutes(rg)
	r.schedule.RegisterRoutes(rg)

	admin := rg.Group("")
	admin.Use(r.auth.RequireRoles(model.RoleAdmin))
	r.staff.RegisterRoutes(admin)
	r.audit.RegisterRoutes(admin)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
