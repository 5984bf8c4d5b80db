package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"enpole.fr/paddock/internal/db"
	"enpole.fr/paddock/internal/globaltime"
	"enpole.fr/paddock/internal/pipeline"
)

const (
	defaultStoryLimit = 25
	maxStoryLimit     = 200

	// TriggerTokenHeader carries the shared secret for the manual run endpoint.
	TriggerTokenHeader = "X-Paddock-Token"

	maxChatMessageRunes = 2000
)

// StoryLister reads recently published stories.
type StoryLister interface {
	ListRecentStories(ctx context.Context, limit int) ([]db.StorySummary, error)
}

// Runner triggers one fetch-to-publish pass on demand.
type Runner interface {
	RunNow(ctx context.Context) (pipeline.RunStats, error)
}

// Chatter answers free-form questions in the bot persona.
type Chatter interface {
	Chat(ctx context.Context, message string) (string, error)
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TriggerSecret   string
}

type Server struct {
	stories StoryLister
	runner  Runner
	chatter Chatter
	logger  zerolog.Logger
	opts    Options
}

func NewServer(stories StoryLister, runner Runner, chatter Chatter, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		stories: stories,
		runner:  runner,
		chatter: chatter,
		logger:  logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			TriggerSecret:   opts.TriggerSecret,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.stories == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", TriggerTokenHeader},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stories", s.handleStories)
	api.POST("/run", s.handleRun)
	api.POST("/chat", s.handleChat)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("paddock api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("paddock api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "paddock",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStories(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultStoryLimit, 1, maxStoryLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	items, err := s.stories.ListRecentStories(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query recent stories failed")
		return internalError(c, "Failed to load stories")
	}

	return success(c, map[string]any{
		"items": items,
		"limit": limit,
	})
}

func (s *Server) handleRun(c echo.Context) error {
	if s.runner == nil {
		return fail(c, http.StatusServiceUnavailable, "Manual trigger is not available", nil)
	}
	if strings.TrimSpace(s.opts.TriggerSecret) == "" {
		return fail(c, http.StatusServiceUnavailable, "Manual trigger is disabled", nil)
	}

	token := c.Request().Header.Get(TriggerTokenHeader)
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.TriggerSecret)) != 1 {
		return failUnauthorized(c, "Invalid trigger token")
	}

	stats, err := s.runner.RunNow(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("manual pipeline pass failed")
		return internalError(c, "Pipeline pass failed")
	}

	return success(c, stats)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(c echo.Context) error {
	if s.chatter == nil {
		return fail(c, http.StatusServiceUnavailable, "Chat is not available", nil)
	}

	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return failValidation(c, map[string]string{"message": "is required"})
	}
	if len([]rune(message)) > maxChatMessageRunes {
		return failValidation(c, map[string]string{"message": fmt.Sprintf("must be at most %d characters", maxChatMessageRunes)})
	}

	reply, err := s.chatter.Chat(c.Request().Context(), message)
	if err != nil {
		s.logger.Error().Err(err).Msg("chat completion failed")
		return fail(c, http.StatusBadGateway, "Chat backend is unavailable", nil)
	}

	return success(c, map[string]any{
		"reply": reply,
	})
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
