package provider

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotConfigured = errors.New("conferencing provider is not configured")

// StatusError is returned when the provider answers with a non-success HTTP status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: provider returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: provider returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

type JoinResult struct {
	CallID      string
	ThreadID    string
	OrganizerID string
}

type CallParticipant struct {
	ID          string
	DisplayName string
	Type        IdentityType
}

// Client is the outbound surface of the conferencing provider.
// LeaveMeeting and SubscribeToMediaStream are best effort: failures are logged, never returned.
type Client interface {
	IsConfigured() bool
	JoinMeeting(ctx context.Context, meetingURL, displayName string) (*JoinResult, error)
	LeaveMeeting(ctx context.Context, callID string)
	CallParticipants(ctx context.Context, callID string) []CallParticipant
	// CallState returns "" when the call is unknown or the lookup failed.
	CallState(ctx context.Context, callID string) string
	SubscribeToMediaStream(ctx context.Context, callID string)
}
