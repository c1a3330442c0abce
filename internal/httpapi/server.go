// Package httpapi exposes a translation session over HTTP so that remote
// user interfaces can drive the orchestrator.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"codeberg.org/snonux/parlo/internal/translation"
)

// Translator is the orchestrator surface served over HTTP.
type Translator interface {
	Translate(ctx context.Context, req translation.Request) (translation.Result, error)
	CurrentEngineState() translation.EngineState
	SetModePreference(preferOnline bool)
	ModePreference() bool
	CurrentConnectivity() bool
	Warmup(ctx context.Context) error
	Retry(ctx context.Context) error
}

type Options struct {
	Listen          string
	DefaultSource   string
	DefaultTarget   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	translator Translator
	logger     zerolog.Logger
	opts       Options
	echo       *echo.Echo
}

func NewServer(translator Translator, logger zerolog.Logger, opts Options) *Server {
	if strings.TrimSpace(opts.Listen) == "" {
		opts.Listen = "127.0.0.1:8088"
	}
	if opts.DefaultSource == "" {
		opts.DefaultSource = "auto"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		translator: translator,
		logger:     logger,
		opts:       opts,
	}
	s.echo = s.routes()
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit("64K"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := s.logger.Debug()
			if v.Error != nil || v.Status >= 500 {
				event = s.logger.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api")
	api.POST("/translate", s.handleTranslate)
	api.GET("/status", s.handleStatus)
	api.PUT("/mode", s.handleMode)
	api.POST("/engine/warmup", s.handleWarmup)
	api.POST("/engine/retry", s.handleRetry)
	return e
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.translator == nil {
		return fmt.Errorf("server is not initialized")
	}

	httpServer := &http.Server{
		Addr:         s.opts.Listen,
		Handler:      s.echo,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", s.opts.Listen).Msg("parlo api server started")

	if err := s.echo.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("parlo api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if v, ok := he.Message.(string); ok && strings.TrimSpace(v) != "" {
			message = v
		} else if text := http.StatusText(status); text != "" {
			message = text
		}
	}

	if status >= 500 {
		s.logger.Error().Err(err).Msg("unhandled api error")
		_ = failure(c, status, message)
		return
	}
	_ = fail(c, status, message, nil)
}
