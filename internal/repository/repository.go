package repository

import "context"

type ListSessionsInput struct {
	UserID   string
	Statuses []SessionStatus
	Limit    int
}

// SessionRepository persists whole session rows. Find methods return (nil, nil) when no row matches.
type SessionRepository interface {
	CreateSession(ctx context.Context, s *Session) error
	SaveSession(ctx context.Context, s *Session) error
	FindSessionByID(ctx context.Context, sessionID string) (*Session, error)
	FindSessionByCallID(ctx context.Context, callID string) (*Session, error)
	// ListSessions returns rows newest first. Empty Statuses means any status; Limit <= 0 means unbounded.
	ListSessions(ctx context.Context, input ListSessionsInput) ([]*Session, error)
}

type Repository interface {
	SessionRepository
}
