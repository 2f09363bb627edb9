package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Server hosts the thin management API around the alerting core.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger zerolog.Logger
}

// NewServer assembles the echo instance and registers all handlers.
func NewServer(addr string, handler *Handler, logger zerolog.Logger) *Server {
	componentLogger := logger.With().Str("component", "http_server").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogging(componentLogger))

	handler.RegisterRoutes(e)

	return &Server{
		echo:   e,
		addr:   addr,
		logger: componentLogger,
	}
}

// requestLogging emits one zerolog line per handled request, tagged with the
// request id assigned by the RequestID middleware.
func requestLogging(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogRequestID: true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				event = logger.Error().Err(v.Error)
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request handled")
			return nil
		},
	})
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.addr).Msg("http server listening")
	if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains the server with a bounded grace period.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
