package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"inkpost/internal/metrics"
	"inkpost/internal/service"
	"inkpost/internal/session"
)

// Config lists the collaborators of Handler. Weather and Metrics are optional.
type Config struct {
	Users    service.UserService
	Posts    service.PostService
	Weather  service.WeatherService
	Gate     *session.Gate
	Sessions *session.Manager
	Limiter  *LoginLimiter
	Metrics  *metrics.Metrics
	Logger   *logrus.Logger

	AllowedOrigins []string
	CookieSecure   bool
	// WeatherHistory is the number of past readings GET /api/weather returns.
	WeatherHistory int
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	cfg    Config
	logger *logrus.Logger
}

func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewLoginLimiter(10, 5)
	}
	return &Handler{cfg: cfg, logger: cfg.Logger}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger))
	if h.cfg.Metrics != nil {
		router.Use(h.cfg.Metrics.Middleware())
		router.GET("/metrics", gin.WrapH(h.cfg.Metrics.Handler()))
	}
	router.Use(corsMiddleware(h.cfg.AllowedOrigins))
	router.Use(h.loadSession)

	api := router.Group("/api")
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.POST("/auth/logout", h.logout)
		api.GET("/auth/me", h.me)

		api.GET("/posts", h.listPosts)
		api.POST("/posts", h.createPost)
		api.GET("/posts/:id", h.getPost)
		api.PUT("/posts/:id", h.updatePost)
		api.DELETE("/posts/:id", h.deletePost)
		api.GET("/users/:id/posts", h.listUserPosts)

		if h.cfg.Weather != nil {
			api.GET("/weather", h.getWeather)
			api.POST("/weather/fetch", h.fetchWeather)
		}

		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Cookie"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			break
		}
	}
	if !cfg.AllowAllOrigins {
		if len(origins) == 0 {
			origins = []string{"http://localhost:3000"}
		}
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// requestLogger never logs bodies or cookies.
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
