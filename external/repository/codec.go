package repository

import (
	"encoding/json"
	"fmt"

	"github.com/foxseedlab/callscribe/internal/repository"
)

const sessionColumns = `id, call_id, user_id, meeting_url, bot_display_name, meeting_id, status,
	participants, transcript_entries, started_at, ended_at, error_message, last_activity_at, created_at`

type encodedLists struct {
	participants []byte
	transcript   []byte
}

func encodeLists(s *repository.Session) (encodedLists, error) {
	participants := s.Participants
	if participants == nil {
		participants = []repository.Participant{}
	}
	entries := s.TranscriptEntries
	if entries == nil {
		entries = []repository.TranscriptEntry{}
	}
	p, err := json.Marshal(participants)
	if err != nil {
		return encodedLists{}, fmt.Errorf("encode participants: %w", err)
	}
	t, err := json.Marshal(entries)
	if err != nil {
		return encodedLists{}, fmt.Errorf("encode transcript entries: %w", err)
	}
	return encodedLists{participants: p, transcript: t}, nil
}

func decodeLists(s *repository.Session, participants, transcript []byte) error {
	s.Participants = []repository.Participant{}
	s.TranscriptEntries = []repository.TranscriptEntry{}
	if len(participants) > 0 {
		if err := json.Unmarshal(participants, &s.Participants); err != nil {
			return fmt.Errorf("decode participants: %w", err)
		}
	}
	if len(transcript) > 0 {
		if err := json.Unmarshal(transcript, &s.TranscriptEntries); err != nil {
			return fmt.Errorf("decode transcript entries: %w", err)
		}
	}
	return nil
}

func nullableCallID(callID string) *string {
	if callID == "" {
		return nil
	}
	return &callID
}

func statusStrings(statuses []repository.SessionStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, string(st))
	}
	return out
}
