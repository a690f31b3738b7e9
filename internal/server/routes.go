package server

import (
	"net/http"
	"os"
	"time"

	"SafePlan/internal/utility"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func (s *Server) RegisterRoutes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:       300,
	}))

	e.Use(LoggerMiddleware)

	if dir := s.cfg.StaticDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			e.Static("/", dir)
		} else {
			log.Warn().Str("dir", dir).Msg("Static directory not found, frontend will not be served")
		}
	}

	e.GET("/health", s.healthHandler)

	api := e.Group("/api")

	// Plan generation is the expensive call, so it is throttled per client.
	api.POST("/plans", s.plans.GeneratePlanHandler, s.planRateLimiter())
	api.GET("/plans", s.plans.ListPlansHandler)
	api.GET("/plans/:plan_id", s.plans.GetPlanHandler)
	api.DELETE("/plans/:plan_id", s.plans.DeletePlanHandler)

	api.POST("/exercises/image", s.plans.ExerciseImageHandler)
	api.GET("/plans/:plan_id/images", s.plans.PlanImagesHandler)
	api.GET("/plans/:plan_id/images/ws", s.plans.PlanImagesStreamHandler)

	return e
}

func (s *Server) planRateLimiter() echo.MiddlewareFunc {
	perMin := s.cfg.RateLimitPerMin
	if perMin <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMin) / 60.0),
		Burst:     perMin,
		ExpiresIn: 3 * time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return utility.GetRealIP(c), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Unable to identify client"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			utility.LoggerFromContext(c).Warn().Str("client", identifier).Msg("Plan generation rate limit hit")
			return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many requests, try again in a minute"})
		},
	})
}

// LoggerMiddleware tags every request with an id and exposes a child logger
// both on the echo context and on the request context.
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context())))

		return next(c)
	}
}
