package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/foxseedlab/callscribe/internal/broadcast"
	"github.com/foxseedlab/callscribe/internal/callevent"
	"github.com/foxseedlab/callscribe/internal/metrics"
	"github.com/foxseedlab/callscribe/internal/repository"
	"github.com/foxseedlab/callscribe/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	userIDHeader     = "X-User-ID"
	userIDQueryParam = "userId"
	userIDContextKey = "user_id"
)

// SessionService is the owner-facing part of the session manager.
type SessionService interface {
	Join(ctx context.Context, userID string, in session.JoinInput) (*repository.Session, error)
	Leave(ctx context.Context, userID, sessionID string) (*repository.Session, error)
	Session(ctx context.Context, sessionID, userID string) (*repository.Session, error)
	ActiveSessions(ctx context.Context, userID string) ([]*repository.Session, error)
	SessionHistory(ctx context.Context, userID string, limit int) ([]*repository.Session, error)
}

// NotificationHandler consumes raw provider webhook bodies.
type NotificationHandler interface {
	HandleCallStateNotification(ctx context.Context, body []byte) callevent.Result
	HandleParticipantsNotification(ctx context.Context, body []byte) callevent.Result
	HandleMediaNotification(ctx context.Context, body []byte) callevent.Result
}

type Subscriber interface {
	Subscribe(sessionID string) *broadcast.Subscription
}

type Server struct {
	echo          *echo.Echo
	sessions      SessionService
	notifications NotificationHandler
	events        Subscriber
	metrics       *metrics.Metrics

	closeOnce sync.Once
	closing   chan struct{}
}

func NewServer(sessions SessionService, notifications NotificationHandler, events Subscriber, m *metrics.Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:          e,
		sessions:      sessions,
		notifications: notifications,
		events:        events,
		metrics:       m,
		closing:       make(chan struct{}),
	}
	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(s.recordMetrics)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	bot := s.echo.Group("/api/bot", requireUserID)
	bot.POST("/join", s.joinMeeting)
	bot.GET("/sessions/active", s.activeSessions)
	bot.GET("/sessions/history", s.sessionHistory)
	bot.GET("/sessions/:id", s.getSession)
	bot.POST("/sessions/:id/leave", s.leaveMeeting)
	bot.GET("/sessions/:id/events", s.streamEvents)

	hooks := s.echo.Group("/api/webhooks/teams")
	hooks.POST("/call-state", s.webhook(s.notifications.HandleCallStateNotification))
	hooks.POST("/participants", s.webhook(s.notifications.HandleParticipantsNotification))
	hooks.POST("/media", s.webhook(s.notifications.HandleMediaNotification))
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start(addr string) error {
	slog.Info("http server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes open event streams and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	return s.echo.Shutdown(ctx)
}

func requireUserID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.Request().Header.Get(userIDHeader)
		if userID == "" {
			userID = c.QueryParam(userIDQueryParam)
		}
		if userID == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing caller identity")
		}
		c.Set(userIDContextKey, userID)
		return next(c)
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userIDContextKey).(string)
	return id
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				slog.Warn("http request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Debug("http request", attrs...)
			return nil
		},
	})
}

func (s *Server) recordMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		status := c.Response().Status
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			status = he.Code
		case err != nil:
			status = http.StatusInternalServerError
		}
		s.metrics.RecordHTTPRequest(c.Request().Method, c.Path(), status, time.Since(start))
		return err
	}
}
