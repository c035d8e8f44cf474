package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/foxseedlab/callscribe/internal/callevent"
	"github.com/labstack/echo/v4"
)

const maxWebhookBodySize = 16 << 20

type webhookResponse struct {
	Status string `json:"status"`
}

// webhook adapts a notification handler to an endpoint that always acknowledges with 200.
// Subscription validation requests carry a validationToken that is echoed back as plain text.
func (s *Server) webhook(handle func(ctx context.Context, body []byte) callevent.Result) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token := c.QueryParam("validationToken"); token != "" {
			return c.String(http.StatusOK, token)
		}
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBodySize))
		if err != nil {
			slog.Warn("failed to read webhook body", "error", err, "path", c.Path())
			return c.JSON(http.StatusOK, webhookResponse{Status: callevent.StatusNoContent})
		}
		res := handle(c.Request().Context(), body)
		return c.JSON(http.StatusOK, webhookResponse{Status: res.Status()})
	}
}
