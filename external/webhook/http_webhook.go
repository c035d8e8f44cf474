package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/callscribe/internal/webhook"
)

const (
	defaultTimeout   = 30 * time.Second
	maxErrorBodySize = 2 << 10
	eventHeader      = "X-Callscribe-Event"
	transcriptEvent  = "transcript.completed"
)

type HTTPSender struct {
	webhookURL string
	client     *http.Client
}

// NewHTTPSender posts transcripts as JSON. An empty URL disables delivery.
func NewHTTPSender(webhookURL string, timeout time.Duration) webhook.Sender {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPSender{
		webhookURL: strings.TrimSpace(webhookURL),
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSender) SendTranscript(ctx context.Context, payload webhook.TranscriptPayload) error {
	if s.webhookURL == "" {
		slog.Debug("transcript webhook disabled; skipping", "session_id", payload.SessionID)
		return nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal transcript payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(eventHeader, transcriptEvent)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post transcript webhook: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
