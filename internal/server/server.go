/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and wires the plan
store and the AI service into the router.
*/
package server

import (
	"fmt"
	"net/http"
	"time"

	"SafePlan/internal/config"
	"SafePlan/internal/database"
	"SafePlan/internal/utility"
	"SafePlan/internal/workout"
	"github.com/labstack/echo/v4"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	cfg *config.Config

	// store keeps generated plans and their illustrations.
	store database.Store

	// plans serves every /api route.
	plans *workout.Handler

	startedAt time.Time

	// Echo is the underlying web framework instance.
	*echo.Echo
}

// New builds the Server without binding a port, so tests can drive the router directly.
func New(cfg *config.Config, store database.Store, ai workout.PlanGenerator) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		plans: workout.NewHandler(store, ai, workout.ImageOptions{
			MaxDelay:    cfg.ImageMaxDelay,
			Concurrency: cfg.ImageConcurrency,
		}, utility.NewHub()),
		startedAt: time.Now(),
	}
	s.Echo = s.RegisterRoutes()
	return s
}

// NewServer returns a configured *http.Server with production network timeouts.
func NewServer(cfg *config.Config, store database.Store, ai workout.PlanGenerator) *http.Server {
	app := New(cfg, store, ai)

	return &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     app,
		IdleTimeout: time.Minute,
		ReadTimeout: 10 * time.Second,
		// Plan generation waits on the model and the image stream is long-lived.
		WriteTimeout: 2*cfg.GeminiTimeout + 30*time.Second,
	}
}
