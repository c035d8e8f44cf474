package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/foxseedlab/callscribe/internal/provider"
	"github.com/foxseedlab/callscribe/internal/session"
	"github.com/labstack/echo/v4"
)

// httpError maps domain errors onto status codes. Unknown errors are logged and hidden.
func httpError(err error) error {
	var joinErr *session.JoinError
	switch {
	case errors.Is(err, session.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	case errors.Is(err, provider.ErrNotConfigured):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &joinErr):
		return echo.NewHTTPError(http.StatusBadGateway, joinErr.Error())
	default:
		slog.Error("request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
