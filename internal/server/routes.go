package server

import (
	"net/http"

	"github.com/berfenger/natureremo2mqtt/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type statusResponse struct {
	Healthy    bool            `json:"healthy"`
	Components map[string]bool `json:"components,omitempty"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/status", s.StatusHandler)
	if s.registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	if health, err := s.health(); err == nil && health.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) StatusHandler(c echo.Context) error {
	health, err := s.health()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, statusResponse{})
	}
	code := http.StatusOK
	if !health.Healthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, statusResponse{
		Healthy:    health.Healthy,
		Components: health.Components,
	})
}

func (s *Server) health() (domain.ActorHealthResponse, error) {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, s.healthTimeout).Result()
	if err != nil {
		return domain.ActorHealthResponse{}, err
	}
	response, _ := res.(domain.ActorHealthResponse)
	return response, nil
}
