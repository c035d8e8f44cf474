package session

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/foxseedlab/callscribe/internal/repository"
	"github.com/foxseedlab/callscribe/internal/webhook"
)

// kept explicit instead of time.DateTime so the layout can change independently
const transcriptTimeLayout = "2006-01-02 15:04:05"

// sessionBounds falls back to the creation time and the last activity when the timestamps were never set.
func sessionBounds(s repository.Session) (time.Time, time.Time) {
	startedAt := s.CreatedAt
	if s.StartedAt != nil {
		startedAt = *s.StartedAt
	}
	endedAt := s.LastActivityAt
	if s.EndedAt != nil {
		endedAt = *s.EndedAt
	}
	if endedAt.Before(startedAt) {
		endedAt = startedAt
	}
	return startedAt, endedAt
}

func buildTranscriptText(s repository.Session, timezone string, loc *time.Location) []byte {
	startedAt, endedAt := sessionBounds(s)
	participants := canonicalParticipants(s.Participants)
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.DisplayName)
	}

	lines := []string{
		fmt.Sprintf("Meeting: %s", s.MeetingURL),
		fmt.Sprintf("Session: %s", s.ID),
		fmt.Sprintf("Period: %s ~ %s (%s)",
			startedAt.In(safeLocation(loc)).Format(transcriptTimeLayout),
			endedAt.In(safeLocation(loc)).Format(transcriptTimeLayout),
			timezone),
		fmt.Sprintf("Participants: %s", strings.Join(names, ", ")),
		"",
	}
	for _, e := range s.TranscriptEntries {
		elapsed := e.Timestamp.Sub(startedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		lines = append(lines, fmt.Sprintf("%s [%s] %s", formatElapsedHMS(elapsed), e.SpeakerName, e.Text))
	}
	return []byte(strings.Join(lines, "\n"))
}

func buildTranscriptPayload(s repository.Session, timezone string, loc *time.Location) webhook.TranscriptPayload {
	loc = safeLocation(loc)
	startedAt, endedAt := sessionBounds(s)

	participants := canonicalParticipants(s.Participants)
	names := make([]string, 0, len(participants))
	details := make([]webhook.TranscriptParticipant, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.DisplayName)
		d := webhook.TranscriptParticipant{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			JoinedAt:    p.JoinedAt.In(loc).Format(time.RFC3339),
		}
		if p.LeftAt != nil {
			d.LeftAt = p.LeftAt.In(loc).Format(time.RFC3339)
		}
		details = append(details, d)
	}

	entries := make([]webhook.TranscriptEntry, 0, len(s.TranscriptEntries))
	texts := make([]string, 0, len(s.TranscriptEntries))
	for i, e := range s.TranscriptEntries {
		entries = append(entries, webhook.TranscriptEntry{
			Index:       i,
			SpokenAt:    e.Timestamp.In(loc).Format(time.RFC3339),
			SpeakerID:   e.SpeakerID,
			SpeakerName: e.SpeakerName,
			Text:        e.Text,
			Confidence:  e.Confidence,
		})
		texts = append(texts, e.Text)
	}

	durationSeconds := int64(endedAt.Sub(startedAt).Seconds())
	if durationSeconds < 0 {
		durationSeconds = 0
	}

	return webhook.TranscriptPayload{
		SchemaVersion:      webhook.TranscriptSchemaVersion,
		SessionID:          s.ID,
		CallID:             s.CallID,
		UserID:             s.UserID,
		MeetingURL:         s.MeetingURL,
		MeetingID:          s.MeetingID,
		Status:             string(s.Status),
		StartAt:            startedAt.In(loc).Format(time.RFC3339),
		EndAt:              endedAt.In(loc).Format(time.RFC3339),
		Timezone:           timezone,
		DurationSeconds:    durationSeconds,
		Participants:       names,
		ParticipantDetails: details,
		EntryCount:         len(entries),
		Entries:            entries,
		Transcript:         strings.Join(texts, "\n"),
	}
}

// canonicalParticipants collapses rejoins to one row per id, keeping the first join and the last leave,
// and orders by display name.
func canonicalParticipants(participants []repository.Participant) []repository.Participant {
	byID := make(map[string]repository.Participant, len(participants))
	for _, p := range participants {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		byID[p.ID] = mergeParticipant(byID[p.ID], p)
	}
	list := make([]repository.Participant, 0, len(byID))
	for _, p := range byID {
		if p.DisplayName == "" {
			p.DisplayName = p.ID
		}
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		in := strings.ToLower(list[i].DisplayName)
		jn := strings.ToLower(list[j].DisplayName)
		if in != jn {
			return in < jn
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func mergeParticipant(existing, incoming repository.Participant) repository.Participant {
	if existing.ID == "" {
		return incoming
	}
	if (existing.DisplayName == "" || existing.DisplayName == existing.ID) && incoming.DisplayName != "" {
		existing.DisplayName = incoming.DisplayName
	}
	if incoming.JoinedAt.Before(existing.JoinedAt) {
		existing.JoinedAt = incoming.JoinedAt
	}
	existing.LeftAt = incoming.LeftAt
	return existing
}

func formatElapsedHMS(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func safeLocation(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
