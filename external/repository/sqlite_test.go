package repository

import (
	"context"
	"testing"
	"time"

	"github.com/foxseedlab/callscribe/internal/repository"
)

func openTestSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	r, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func newTestSession(id, userID string, createdAt time.Time) *repository.Session {
	return &repository.Session{
		ID:             id,
		UserID:         userID,
		MeetingURL:     "https://teams.microsoft.com/l/meetup-join/abc",
		BotDisplayName: "Scribe",
		Status:         repository.SessionStatusJoining,
		LastActivityAt: createdAt,
		CreatedAt:      createdAt,
	}
}

func TestSQLite_CreateSaveAndFind(t *testing.T) {
	r := openTestSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	s := newTestSession("s1", "user-1", now)
	if err := r.CreateSession(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}

	speaker := "spk-1"
	s.CallID = "call-1"
	s.Status = repository.SessionStatusActive
	s.StartedAt = &now
	s.Participants = []repository.Participant{{ID: "p1", DisplayName: "Ada", JoinedAt: now}}
	s.TranscriptEntries = []repository.TranscriptEntry{{Timestamp: now, SpeakerID: &speaker, SpeakerName: "Ada", Text: "hello", Confidence: 0.9}}
	if err := r.SaveSession(ctx, s); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := r.FindSessionByCallID(ctx, "call-1")
	if err != nil {
		t.Fatalf("find by call id: %v", err)
	}
	if got == nil || got.ID != "s1" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.Status != repository.SessionStatusActive || got.StartedAt == nil || !got.StartedAt.Equal(now) {
		t.Fatalf("unexpected status/startedAt: %s %v", got.Status, got.StartedAt)
	}
	if got.ParticipantCount() != 1 || got.TranscriptEntryCount() != 1 {
		t.Fatalf("unexpected counts: %d participants, %d entries", got.ParticipantCount(), got.TranscriptEntryCount())
	}
	if got.TranscriptEntries[0].SpeakerID == nil || *got.TranscriptEntries[0].SpeakerID != "spk-1" {
		t.Fatalf("speaker id not preserved: %+v", got.TranscriptEntries[0])
	}
}

func TestSQLite_FindMissingReturnsNil(t *testing.T) {
	r := openTestSQLite(t)
	got, err := r.FindSessionByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil session, got %+v", got)
	}
}

func TestSQLite_ListSessionsNewestFirstFilteredByStatus(t *testing.T) {
	r := openTestSQLite(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, st := range []repository.SessionStatus{
		repository.SessionStatusActive,
		repository.SessionStatusEnded,
		repository.SessionStatusJoining,
	} {
		s := newTestSession(string(rune('a'+i)), "user-1", base.Add(time.Duration(i)*time.Second))
		s.Status = st
		if err := r.CreateSession(ctx, s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	other := newTestSession("z", "user-2", base)
	if err := r.CreateSession(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}

	live, err := r.ListSessions(ctx, repository.ListSessionsInput{
		UserID:   "user-1",
		Statuses: []repository.SessionStatus{repository.SessionStatusJoining, repository.SessionStatusActive},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(live) != 2 || live[0].ID != "c" || live[1].ID != "a" {
		t.Fatalf("unexpected live order: %+v", ids(live))
	}

	history, err := r.ListSessions(ctx, repository.ListSessionsInput{UserID: "user-1", Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(history) != 2 || history[0].ID != "c" || history[1].ID != "b" {
		t.Fatalf("unexpected history: %+v", ids(history))
	}
}

func TestSQLiteDSN(t *testing.T) {
	cases := map[string]string{
		"sqlite:///var/lib/callscribe.db": "/var/lib/callscribe.db",
		"sqlite:callscribe.db":            "callscribe.db",
		"file:callscribe.db?_pragma=1":    "file:callscribe.db?_pragma=1",
	}
	for in, want := range cases {
		got, ok := sqliteDSN(in)
		if !ok || got != want {
			t.Fatalf("sqliteDSN(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := sqliteDSN("postgres://localhost/db"); ok {
		t.Fatal("expected postgres url not to be treated as sqlite")
	}
}

func ids(list []*repository.Session) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.ID)
	}
	return out
}
