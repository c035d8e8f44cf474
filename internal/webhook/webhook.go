package webhook

import "context"

const TranscriptSchemaVersion = "2026-03-01"

// Sender delivers the final transcript of an ended session to an external endpoint.
type Sender interface {
	SendTranscript(ctx context.Context, payload TranscriptPayload) error
}

type TranscriptPayload struct {
	SchemaVersion      string                  `json:"schema_version"`
	SessionID          string                  `json:"session_id"`
	CallID             string                  `json:"call_id,omitempty"`
	UserID             string                  `json:"user_id"`
	MeetingURL         string                  `json:"meeting_url"`
	MeetingID          *string                 `json:"meeting_id,omitempty"`
	Status             string                  `json:"status"`
	StartAt            string                  `json:"start_at,omitempty"`
	EndAt              string                  `json:"end_at,omitempty"`
	Timezone           string                  `json:"timezone"`
	DurationSeconds    int64                   `json:"duration_seconds"`
	Participants       []string                `json:"participants"`
	ParticipantDetails []TranscriptParticipant `json:"participant_details"`
	EntryCount         int                     `json:"entry_count"`
	Entries            []TranscriptEntry       `json:"entries"`
	Transcript         string                  `json:"transcript"`
}

type TranscriptParticipant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	JoinedAt    string `json:"joined_at"`
	LeftAt      string `json:"left_at,omitempty"`
}

type TranscriptEntry struct {
	Index       int     `json:"index"`
	SpokenAt    string  `json:"spoken_at"`
	SpeakerID   *string `json:"speaker_id,omitempty"`
	SpeakerName string  `json:"speaker_name"`
	Text        string  `json:"text"`
	Confidence  float64 `json:"confidence"`
}
