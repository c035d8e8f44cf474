package session

import (
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/callscribe/internal/repository"
	"github.com/foxseedlab/callscribe/internal/webhook"
)

func formatterFixture(t *testing.T) (repository.Session, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	startedAt := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	endedAt := startedAt.Add(2 * time.Minute)
	left := startedAt.Add(time.Minute)
	spk := "u1"
	return repository.Session{
		ID:         "session-1",
		CallID:     "call-1",
		UserID:     "owner",
		MeetingURL: "https://teams.microsoft.com/l/meetup-join/abc",
		Status:     repository.SessionStatusEnded,
		StartedAt:  &startedAt,
		EndedAt:    &endedAt,
		Participants: []repository.Participant{
			{ID: "u2", DisplayName: "Bob", JoinedAt: startedAt},
			{ID: "u1", DisplayName: "Alice", JoinedAt: startedAt, LeftAt: &left},
			{ID: "u1", DisplayName: "Alice", JoinedAt: startedAt.Add(90 * time.Second)},
		},
		TranscriptEntries: []repository.TranscriptEntry{
			{Timestamp: startedAt.Add(15 * time.Second), SpeakerID: &spk, SpeakerName: "Alice", Text: "hello", Confidence: 0.9},
			{Timestamp: startedAt.Add(75 * time.Second), SpeakerName: "Unknown Speaker", Text: "welcome", Confidence: 0.9},
		},
	}, loc
}

func TestBuildTranscriptText(t *testing.T) {
	s, loc := formatterFixture(t)
	body := string(buildTranscriptText(s, "Asia/Tokyo", loc))

	if !strings.Contains(body, "Period: 2026-02-28 21:00:00 ~ 2026-02-28 21:02:00 (Asia/Tokyo)") {
		t.Fatalf("period line not found in body: %s", body)
	}
	if !strings.Contains(body, "Participants: Alice, Bob") {
		t.Fatalf("participants line not found in body: %s", body)
	}
	if !strings.Contains(body, "00:00:15 [Alice] hello") {
		t.Fatalf("first entry line not found in body: %s", body)
	}
	if !strings.Contains(body, "00:01:15 [Unknown Speaker] welcome") {
		t.Fatalf("second entry line not found in body: %s", body)
	}
}

func TestBuildTranscriptPayload(t *testing.T) {
	s, loc := formatterFixture(t)
	payload := buildTranscriptPayload(s, "Asia/Tokyo", loc)

	assertTranscriptPayloadCore(t, payload)
	if len(payload.ParticipantDetails) != 2 || payload.ParticipantDetails[0].ID != "u1" {
		t.Fatalf("rejoins must collapse to one participant: %+v", payload.ParticipantDetails)
	}
	if payload.ParticipantDetails[0].LeftAt != "" {
		t.Fatalf("latest join must win the left state: %+v", payload.ParticipantDetails[0])
	}
}

func assertTranscriptPayloadCore(t *testing.T, payload webhook.TranscriptPayload) {
	t.Helper()
	if payload.SchemaVersion != webhook.TranscriptSchemaVersion {
		t.Fatalf("unexpected schema_version: %s", payload.SchemaVersion)
	}
	if payload.SessionID != "session-1" || payload.CallID != "call-1" || payload.Status != "ENDED" {
		t.Fatalf("unexpected identity fields: %+v", payload)
	}
	if payload.DurationSeconds != 120 {
		t.Fatalf("unexpected duration: %d", payload.DurationSeconds)
	}
	if payload.StartAt != "2026-02-28T21:00:00+09:00" {
		t.Fatalf("unexpected start_at: %s", payload.StartAt)
	}
	if payload.EntryCount != 2 || payload.Entries[1].Index != 1 || payload.Entries[1].SpeakerID != nil {
		t.Fatalf("unexpected entries: %+v", payload.Entries)
	}
	if payload.Transcript != "hello\nwelcome" {
		t.Fatalf("unexpected transcript: %q", payload.Transcript)
	}
	if payload.Participants[0] != "Alice" || payload.Participants[1] != "Bob" {
		t.Fatalf("participants are not sorted: %+v", payload.Participants)
	}
}

func TestSessionBounds_FallBackWhenUnset(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := repository.Session{CreatedAt: created, LastActivityAt: created.Add(time.Minute)}
	start, end := sessionBounds(s)
	if !start.Equal(created) || !end.Equal(created.Add(time.Minute)) {
		t.Fatalf("unexpected bounds: %s %s", start, end)
	}
}
