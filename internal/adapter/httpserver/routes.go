package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	apperrors "github.com/pscheid92/signboard/internal/errors"
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(requestLogger())
	s.echo.Use(middleware.Recover())
	if s.httpMetrics != nil {
		s.echo.Use(s.httpMetrics.Middleware())
		s.echo.Use(apperrors.Middleware(s.httpMetrics.Errors))
	} else {
		s.echo.Use(apperrors.Middleware(nil))
	}

	s.registerHealthRoutes()

	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}

	if s.hub != nil {
		upgradeLimit := newRateLimiter(s.config.WebSocketRateLimit, s.config.WebSocketRateBurst)
		s.echo.GET("/hub", s.hub.HandleOpen, upgradeLimit)
		s.echo.GET("/hub/reconnect", s.hub.HandleResume, upgradeLimit)
	}
}
