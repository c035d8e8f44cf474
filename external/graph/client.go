package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foxseedlab/callscribe/internal/provider"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	graphScope       = "https://graph.microsoft.com/.default"
	maxErrorBodySize = 4 << 10
)

type Config struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	CallbackURL  string
	BaseURL      string
	LoginBaseURL string
	HTTPTimeout  time.Duration
}

// Client talks to the Microsoft Graph communications API on behalf of the bot application.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     *TokenCache
	now        func() time.Time
}

func NewClient(cfg Config, tokens *TokenCache) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.LoginBaseURL = strings.TrimRight(cfg.LoginBaseURL, "/")
	if tokens == nil {
		tokens = NewTokenCache()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		tokens:     tokens,
		now:        time.Now,
	}
}

func (c *Client) IsConfigured() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != "" && c.cfg.TenantID != "" && c.cfg.CallbackURL != ""
}

// Token returns the cached app-only token, acquiring a fresh one when it is absent or about to expire.
func (c *Client) Token(ctx context.Context) (Token, error) {
	if t, ok := c.tokens.Get(c.now()); ok {
		return t, nil
	}
	cc := &clientcredentials.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.cfg.LoginBaseURL, url.PathEscape(c.cfg.TenantID)),
		Scopes:       []string{graphScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tok, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	if err != nil {
		return Token{}, fmt.Errorf("acquire app token: %w", err)
	}
	t := Token{AccessToken: tok.AccessToken, ExpiresAt: tok.Expiry}
	c.tokens.Store(t)
	slog.Debug("graph app token refreshed", "expires_at", t.ExpiresAt)
	return t, nil
}

func (c *Client) JoinMeeting(ctx context.Context, meetingURL, displayName string) (*provider.JoinResult, error) {
	if !c.IsConfigured() {
		return nil, provider.ErrNotConfigured
	}
	info := provider.ParseMeetingURL(meetingURL)
	if info == nil {
		slog.Warn("meeting url could not be parsed; joining without organizer or chat info", "meeting_url", meetingURL)
	}

	resp, err := c.do(ctx, http.MethodPost, "/communications/calls", c.buildJoinRequest(info, displayName))
	if err != nil {
		return nil, fmt.Errorf("join meeting: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		return nil, statusError("join meeting", resp)
	}

	var call callResponse
	if err := json.NewDecoder(resp.Body).Decode(&call); err != nil {
		return nil, fmt.Errorf("join meeting: decode response: %w", err)
	}
	if call.ID == "" {
		return nil, fmt.Errorf("join meeting: provider response has no call id")
	}

	result := &provider.JoinResult{CallID: call.ID}
	var parsedThread, parsedOrganizer string
	if info != nil {
		parsedThread, parsedOrganizer = info.ThreadID, info.OrganizerID
	}
	result.ThreadID = provider.FirstNonEmpty(call.threadID(), parsedThread)
	result.OrganizerID = provider.FirstNonEmpty(call.organizerID(), parsedOrganizer)
	slog.Info("graph call created", "call_id", result.CallID, "thread_id", result.ThreadID)
	return result, nil
}

func (c *Client) LeaveMeeting(ctx context.Context, callID string) {
	resp, err := c.do(ctx, http.MethodDelete, callPath(callID), nil)
	if err != nil {
		slog.Error("failed to leave call", "error", err, "call_id", callID)
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	switch {
	case isHTTPSuccessStatus(resp.StatusCode):
		slog.Info("left call", "call_id", callID)
	case resp.StatusCode == http.StatusNotFound:
		slog.Info("call already gone at provider", "call_id", callID)
	default:
		slog.Warn("provider rejected leave request", "error", statusError("leave meeting", resp), "call_id", callID)
	}
}

func (c *Client) CallParticipants(ctx context.Context, callID string) []provider.CallParticipant {
	resp, err := c.do(ctx, http.MethodGet, callPath(callID)+"/participants", nil)
	if err != nil {
		slog.Error("failed to list call participants", "error", err, "call_id", callID)
		return []provider.CallParticipant{}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		slog.Warn("provider rejected participant listing", "error", statusError("list participants", resp), "call_id", callID)
		return []provider.CallParticipant{}
	}

	var list participantListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		slog.Warn("failed to decode participant listing", "error", err, "call_id", callID)
		return []provider.CallParticipant{}
	}
	out := make([]provider.CallParticipant, 0, len(list.Value))
	for _, p := range list.Value {
		resolved := provider.ResolveIdentity(p.Info.Identity, p.ID)
		out = append(out, provider.CallParticipant{ID: resolved.ID, DisplayName: resolved.DisplayName, Type: resolved.Type})
	}
	return out
}

func (c *Client) CallState(ctx context.Context, callID string) string {
	resp, err := c.do(ctx, http.MethodGet, callPath(callID), nil)
	if err != nil {
		slog.Error("failed to fetch call state", "error", err, "call_id", callID)
		return ""
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		if resp.StatusCode != http.StatusNotFound {
			slog.Warn("provider rejected call lookup", "error", statusError("get call", resp), "call_id", callID)
		}
		return ""
	}
	var call callResponse
	if err := json.NewDecoder(resp.Body).Decode(&call); err != nil {
		slog.Warn("failed to decode call", "error", err, "call_id", callID)
		return ""
	}
	return call.State
}

func (c *Client) SubscribeToMediaStream(ctx context.Context, callID string) {
	resp, err := c.do(ctx, http.MethodPost, callPath(callID)+"/subscribeToTone", subscribeToToneRequest{ClientContext: callID})
	if err != nil {
		slog.Warn("failed to subscribe to media stream", "error", err, "call_id", callID)
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		slog.Warn("provider rejected media subscription", "error", statusError("subscribe media", resp), "call_id", callID)
		return
	}
	slog.Info("subscribed to media stream", "call_id", callID)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

func callPath(callID string) string {
	return "/communications/calls/" + url.PathEscape(callID)
}

func statusError(op string, resp *http.Response) *provider.StatusError {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	return &provider.StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
