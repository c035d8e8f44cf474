package repository

import "time"

type SessionStatus string

const (
	SessionStatusJoining SessionStatus = "JOINING"
	SessionStatusActive  SessionStatus = "ACTIVE"
	SessionStatusLeaving SessionStatus = "LEAVING"
	SessionStatusEnded   SessionStatus = "ENDED"
	SessionStatusFailed  SessionStatus = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusEnded || s == SessionStatusFailed
}

// Live reports whether the session counts as active for listings.
func (s SessionStatus) Live() bool {
	return s == SessionStatusJoining || s == SessionStatusActive
}

type Participant struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"displayName"`
	JoinedAt    time.Time  `json:"joinedAt"`
	LeftAt      *time.Time `json:"leftAt"`
}

type TranscriptEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	SpeakerID   *string   `json:"speakerId"`
	SpeakerName string    `json:"speakerName"`
	Text        string    `json:"text"`
	Confidence  float64   `json:"confidence"`
}

type ParticipantChange string

const (
	ParticipantJoined ParticipantChange = "joined"
	ParticipantLeft   ParticipantChange = "left"
)

type Session struct {
	ID                string            `json:"sessionId"`
	CallID            string            `json:"callId,omitempty"`
	UserID            string            `json:"userId"`
	MeetingURL        string            `json:"meetingUrl"`
	BotDisplayName    string            `json:"botDisplayName"`
	MeetingID         *string           `json:"meetingId"`
	Status            SessionStatus     `json:"status"`
	Participants      []Participant     `json:"participants"`
	TranscriptEntries []TranscriptEntry `json:"transcriptEntries"`
	StartedAt         *time.Time        `json:"startedAt"`
	EndedAt           *time.Time        `json:"endedAt"`
	ErrorMessage      *string           `json:"errorMessage"`
	LastActivityAt    time.Time         `json:"lastActivityAt"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// ParticipantCount is derived from the participant list: entries that have not left.
func (s *Session) ParticipantCount() int {
	n := 0
	for _, p := range s.Participants {
		if p.LeftAt == nil {
			n++
		}
	}
	return n
}

func (s *Session) TranscriptEntryCount() int {
	return len(s.TranscriptEntries)
}

// Clone returns a deep copy so callers can hand out snapshots without sharing slices.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Participants = make([]Participant, len(s.Participants))
	for i, p := range s.Participants {
		c.Participants[i] = p
		if p.LeftAt != nil {
			t := *p.LeftAt
			c.Participants[i].LeftAt = &t
		}
	}
	c.TranscriptEntries = make([]TranscriptEntry, len(s.TranscriptEntries))
	for i, e := range s.TranscriptEntries {
		c.TranscriptEntries[i] = e
		if e.SpeakerID != nil {
			id := *e.SpeakerID
			c.TranscriptEntries[i].SpeakerID = &id
		}
	}
	c.MeetingID = cloneString(s.MeetingID)
	c.ErrorMessage = cloneString(s.ErrorMessage)
	c.StartedAt = cloneTime(s.StartedAt)
	c.EndedAt = cloneTime(s.EndedAt)
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
