package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/callscribe/internal/metrics"
	"github.com/foxseedlab/callscribe/internal/provider"
	"github.com/foxseedlab/callscribe/internal/repository"
	"github.com/google/uuid"
)

const (
	DefaultBotDisplayName = "Meeting Notetaker"

	finalizeTimeout       = 2 * time.Minute
	mediaSubscribeTimeout = 30 * time.Second

	providerStateTerminated = "terminated"
)

var ErrNotFound = errors.New("session not found")

// JoinError is returned when the provider refused or failed the join. Session holds the FAILED row.
type JoinError struct {
	Session *repository.Session
	Err     error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join meeting: %v", e.Err)
}

func (e *JoinError) Unwrap() error {
	return e.Err
}

// Publisher receives every applied mutation. Implementations must not block.
type Publisher interface {
	EmitStatusUpdate(s repository.Session)
	EmitTranscriptEntry(s repository.Session, entry repository.TranscriptEntry)
	EmitParticipantUpdate(s repository.Session, change repository.ParticipantChange, p repository.Participant)
}

// AudioFlusher drains a call's buffered audio before its transcript is finalized.
type AudioFlusher interface {
	FlushAudioBuffer(ctx context.Context, callID string) error
	ClearSession(callID string)
}

type JoinInput struct {
	MeetingURL     string
	BotDisplayName string
	MeetingID      *string
}

// Manager owns the session state machine. Every row mutation re-reads the stored row under a
// per-session lock, so transitions are checked against persisted state rather than a stale snapshot.
type Manager struct {
	repo         repository.Repository
	provider     provider.Client
	publisher    Publisher
	finalizer    Finalizer
	metrics      *metrics.Metrics
	historyLimit int
	now          func() time.Time
	newID        func() string
	locks        *keyedMutex

	audioMu sync.RWMutex
	audio   AudioFlusher

	background sync.WaitGroup
}

func NewManager(repo repository.Repository, pc provider.Client, pub Publisher, fin Finalizer, m *metrics.Metrics, historyLimit int) *Manager {
	return &Manager{
		repo:         repo,
		provider:     pc,
		publisher:    pub,
		finalizer:    fin,
		metrics:      m,
		historyLimit: historyLimit,
		now:          time.Now,
		newID:        uuid.NewString,
		locks:        newKeyedMutex(),
	}
}

func (m *Manager) AttachAudio(a AudioFlusher) {
	m.audioMu.Lock()
	defer m.audioMu.Unlock()
	m.audio = a
}

func (m *Manager) audioFlusher() AudioFlusher {
	m.audioMu.RLock()
	defer m.audioMu.RUnlock()
	return m.audio
}

func (m *Manager) Join(ctx context.Context, userID string, in JoinInput) (*repository.Session, error) {
	if !m.provider.IsConfigured() {
		return nil, provider.ErrNotConfigured
	}

	now := m.now()
	s := &repository.Session{
		ID:                m.newID(),
		UserID:            userID,
		MeetingURL:        strings.TrimSpace(in.MeetingURL),
		BotDisplayName:    provider.FirstNonEmpty(strings.TrimSpace(in.BotDisplayName), DefaultBotDisplayName),
		MeetingID:         in.MeetingID,
		Status:            repository.SessionStatusJoining,
		Participants:      []repository.Participant{},
		TranscriptEntries: []repository.TranscriptEntry{},
		LastActivityAt:    now,
		CreatedAt:         now,
	}
	if err := m.repo.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	slog.Info("join requested", "session_id", s.ID, "user_id", userID, "meeting_url", s.MeetingURL)

	result, joinErr := m.provider.JoinMeeting(ctx, s.MeetingURL, s.BotDisplayName)
	// the outcome is recorded even if the caller went away mid-join
	pctx := context.WithoutCancel(ctx)
	if joinErr != nil {
		return nil, m.failJoin(pctx, s, joinErr)
	}

	joined, applied, err := m.mutate(pctx, s.ID, func(row *repository.Session) bool {
		if !CanTransition(row.Status, repository.SessionStatusActive) {
			return false
		}
		row.CallID = result.CallID
		return m.applyStatus(row, repository.SessionStatusActive, nil)
	}, m.statusChanged)
	if err != nil {
		m.provider.LeaveMeeting(pctx, result.CallID)
		return nil, m.failJoin(pctx, s, fmt.Errorf("persist joined session: %w", err))
	}
	if joined == nil {
		m.provider.LeaveMeeting(pctx, result.CallID)
		return nil, ErrNotFound
	}
	if !applied {
		// the session was left or ended while the provider was still placing the call
		slog.Warn("session no longer joinable; hanging up new call", "session_id", s.ID, "call_id", result.CallID, "status", joined.Status)
		m.provider.LeaveMeeting(pctx, result.CallID)
		return joined, nil
	}
	slog.Info("joined meeting", "session_id", joined.ID, "call_id", joined.CallID, "thread_id", result.ThreadID)

	callID := joined.CallID
	m.runBackground(mediaSubscribeTimeout, func(ctx context.Context) {
		m.provider.SubscribeToMediaStream(ctx, callID)
		m.seedParticipants(ctx, callID)
	})
	return joined, nil
}

// seedParticipants records whoever was already in the call when the bot joined; later changes
// arrive as participant notifications.
func (m *Manager) seedParticipants(ctx context.Context, callID string) {
	for _, p := range m.provider.CallParticipants(ctx, callID) {
		if _, _, err := m.AddParticipant(ctx, callID, repository.Participant{ID: p.ID, DisplayName: p.DisplayName}); err != nil {
			slog.Warn("failed to seed participant", "error", err, "call_id", callID, "participant_id", p.ID)
		}
	}
}

// failJoin marks the session FAILED with cause and wraps it in a JoinError carrying the stored row.
func (m *Manager) failJoin(ctx context.Context, s *repository.Session, cause error) error {
	msg := cause.Error()
	failed, _, err := m.mutate(ctx, s.ID, func(row *repository.Session) bool {
		return m.applyStatus(row, repository.SessionStatusFailed, &msg)
	}, m.statusChanged)
	if err != nil {
		slog.Error("failed to persist join failure", "error", err, "session_id", s.ID)
	}
	if failed == nil {
		failed = s.Clone()
		failed.Status = repository.SessionStatusFailed
		failed.ErrorMessage = &msg
	}
	m.metrics.RecordJoinFailure()
	slog.Error("failed to join meeting", "error", cause, "session_id", s.ID, "user_id", s.UserID)
	return &JoinError{Session: failed, Err: cause}
}

// Leave moves the session through LEAVING to ENDED. The provider hang-up is best effort, so the
// session always ends. Sessions already ENDED or FAILED are returned unchanged.
func (m *Manager) Leave(ctx context.Context, userID, sessionID string) (*repository.Session, error) {
	s, err := m.Session(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if s.Status.Terminal() {
		return s, nil
	}

	pctx := context.WithoutCancel(ctx)
	leaving, _, err := m.mutate(pctx, sessionID, func(row *repository.Session) bool {
		return m.applyStatus(row, repository.SessionStatusLeaving, nil)
	}, m.statusChanged)
	if err != nil {
		return nil, err
	}
	if leaving == nil {
		return nil, ErrNotFound
	}
	if leaving.Status.Terminal() {
		return leaving, nil
	}

	switch {
	case leaving.CallID == "":
		slog.Info("session has no call id; skipping provider leave", "session_id", sessionID)
	case m.provider.CallState(pctx, leaving.CallID) == providerStateTerminated:
		slog.Info("call already terminated at provider; skipping hang-up", "session_id", sessionID, "call_id", leaving.CallID)
	default:
		m.provider.LeaveMeeting(pctx, leaving.CallID)
	}

	ended, applied, err := m.mutate(pctx, sessionID, func(row *repository.Session) bool {
		return m.applyStatus(row, repository.SessionStatusEnded, nil)
	}, m.statusChanged)
	if err != nil {
		return nil, err
	}
	if ended == nil {
		return nil, ErrNotFound
	}
	if applied {
		m.scheduleFinalize(*ended)
	}
	slog.Info("left meeting", "session_id", sessionID, "call_id", ended.CallID)
	return ended, nil
}

// UpdateStatus applies a provider-reported status to the session owning callID.
// Unknown calls and disallowed transitions are not errors; applied reports whether the row changed.
func (m *Manager) UpdateStatus(ctx context.Context, callID string, status repository.SessionStatus, errorMessage *string) (*repository.Session, bool, error) {
	s, err := m.repo.FindSessionByCallID(ctx, callID)
	if err != nil {
		return nil, false, fmt.Errorf("find session by call: %w", err)
	}
	if s == nil {
		slog.Warn("status update for unknown call", "call_id", callID, "status", status)
		return nil, false, nil
	}
	previous := s.Status
	updated, applied, err := m.mutate(ctx, s.ID, func(row *repository.Session) bool {
		previous = row.Status
		return m.applyStatus(row, status, errorMessage)
	}, m.statusChanged)
	if err != nil {
		return nil, false, err
	}
	if !applied {
		slog.Debug("status transition ignored", "session_id", s.ID, "call_id", callID, "from", previous, "to", status)
		return updated, false, nil
	}
	slog.Info("session status updated", "session_id", s.ID, "call_id", callID, "from", previous, "to", status)
	if status == repository.SessionStatusEnded {
		m.scheduleFinalize(*updated)
	}
	return updated, true, nil
}

// Session returns the session only to its owner; anything else is ErrNotFound.
func (m *Manager) Session(ctx context.Context, sessionID, userID string) (*repository.Session, error) {
	s, err := m.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if s == nil || s.UserID != userID {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) SessionByCallID(ctx context.Context, callID string) (*repository.Session, error) {
	s, err := m.repo.FindSessionByCallID(ctx, callID)
	if err != nil {
		return nil, fmt.Errorf("find session by call: %w", err)
	}
	return s, nil
}

func (m *Manager) ActiveSessions(ctx context.Context, userID string) ([]*repository.Session, error) {
	list, err := m.repo.ListSessions(ctx, repository.ListSessionsInput{
		UserID:   userID,
		Statuses: []repository.SessionStatus{repository.SessionStatusJoining, repository.SessionStatusActive},
	})
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return list, nil
}

// SessionHistory returns the newest sessions of any status, capped at the configured history limit.
func (m *Manager) SessionHistory(ctx context.Context, userID string, limit int) ([]*repository.Session, error) {
	if limit <= 0 || limit > m.historyLimit {
		limit = m.historyLimit
	}
	list, err := m.repo.ListSessions(ctx, repository.ListSessionsInput{UserID: userID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list session history: %w", err)
	}
	return list, nil
}

// AddParticipant records a join. A participant id already present, left or not, is a no-op.
func (m *Manager) AddParticipant(ctx context.Context, callID string, p repository.Participant) (*repository.Session, bool, error) {
	s, err := m.SessionByCallID(ctx, callID)
	if err != nil || s == nil {
		return nil, false, err
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = m.now()
	}
	p.LeftAt = nil
	return m.mutate(ctx, s.ID, func(row *repository.Session) bool {
		if slices.ContainsFunc(row.Participants, func(x repository.Participant) bool { return x.ID == p.ID }) {
			return false
		}
		row.Participants = append(row.Participants, p)
		return true
	}, func(row repository.Session) {
		m.publisher.EmitParticipantUpdate(row, repository.ParticipantJoined, p)
	})
}

// RemoveParticipant marks the first un-left entry with participantID as left.
func (m *Manager) RemoveParticipant(ctx context.Context, callID, participantID string) (*repository.Session, bool, error) {
	s, err := m.SessionByCallID(ctx, callID)
	if err != nil || s == nil {
		return nil, false, err
	}
	var left repository.Participant
	return m.mutate(ctx, s.ID, func(row *repository.Session) bool {
		i := slices.IndexFunc(row.Participants, func(x repository.Participant) bool {
			return x.ID == participantID && x.LeftAt == nil
		})
		if i < 0 {
			return false
		}
		now := m.now()
		row.Participants[i].LeftAt = &now
		left = row.Participants[i]
		return true
	}, func(row repository.Session) {
		m.publisher.EmitParticipantUpdate(row, repository.ParticipantLeft, left)
	})
}

// AppendTranscriptEntry appends to the session owning callID. An unknown call yields (nil, nil).
func (m *Manager) AppendTranscriptEntry(ctx context.Context, callID string, entry repository.TranscriptEntry) (*repository.Session, error) {
	s, err := m.SessionByCallID(ctx, callID)
	if err != nil || s == nil {
		return nil, err
	}
	updated, _, err := m.mutate(ctx, s.ID, func(row *repository.Session) bool {
		row.TranscriptEntries = append(row.TranscriptEntries, entry)
		return true
	}, func(row repository.Session) {
		m.publisher.EmitTranscriptEntry(row, entry)
	})
	return updated, err
}

// Wait blocks until background work (media subscription, finalization) has finished or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mutate re-reads the row under its lock, applies fn and persists the row when fn reports a change.
// emit runs under the same lock so events for one session leave in mutation order.
func (m *Manager) mutate(ctx context.Context, sessionID string, fn func(*repository.Session) bool, emit func(repository.Session)) (*repository.Session, bool, error) {
	unlock := m.locks.Lock(sessionID)
	defer unlock()

	s, err := m.repo.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, false, fmt.Errorf("find session: %w", err)
	}
	if s == nil {
		return nil, false, nil
	}
	if !fn(s) {
		return s, false, nil
	}
	s.LastActivityAt = m.now()
	if err := m.repo.SaveSession(ctx, s); err != nil {
		return nil, false, fmt.Errorf("save session: %w", err)
	}
	if emit != nil {
		emit(*s.Clone())
	}
	return s, true, nil
}

func (m *Manager) applyStatus(s *repository.Session, next repository.SessionStatus, errorMessage *string) bool {
	if !CanTransition(s.Status, next) {
		return false
	}
	s.Status = next
	if errorMessage != nil {
		s.ErrorMessage = errorMessage
	}
	now := m.now()
	if next == repository.SessionStatusActive && s.StartedAt == nil {
		s.StartedAt = &now
	}
	if next == repository.SessionStatusEnded && s.EndedAt == nil {
		s.EndedAt = &now
	}
	return true
}

func (m *Manager) statusChanged(s repository.Session) {
	m.metrics.RecordTransition(string(s.Status))
	m.publisher.EmitStatusUpdate(s)
}

func (m *Manager) scheduleFinalize(s repository.Session) {
	m.runBackground(finalizeTimeout, func(ctx context.Context) {
		if a := m.audioFlusher(); a != nil && s.CallID != "" {
			if err := a.FlushAudioBuffer(ctx, s.CallID); err != nil {
				slog.Warn("failed to flush audio before finalizing", "error", err, "session_id", s.ID, "call_id", s.CallID)
			}
			a.ClearSession(s.CallID)
		}
		latest, err := m.repo.FindSessionByID(ctx, s.ID)
		if err != nil || latest == nil {
			slog.Warn("using last known snapshot for finalization", "error", err, "session_id", s.ID)
			latest = &s
		}
		if m.finalizer != nil {
			m.finalizer.Finalize(ctx, *latest)
		}
	})
}

func (m *Manager) runBackground(timeout time.Duration, fn func(ctx context.Context)) {
	m.background.Add(1)
	go func() {
		defer m.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		fn(ctx)
	}()
}
