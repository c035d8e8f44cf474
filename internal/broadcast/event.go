package broadcast

import (
	"time"

	"github.com/foxseedlab/callscribe/internal/repository"
)

type EventType string

const (
	EventStatus      EventType = "status"
	EventTranscript  EventType = "transcript"
	EventParticipant EventType = "participant"
)

// Event is the unit of fan-out. SessionID is the routing key and is not part of the wire form.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"-"`
	Data      any       `json:"data"`
}

type StatusData struct {
	SessionID            string                   `json:"sessionId"`
	CallID               string                   `json:"callId,omitempty"`
	Status               repository.SessionStatus `json:"status"`
	ErrorMessage         *string                  `json:"errorMessage,omitempty"`
	ParticipantCount     int                      `json:"participantCount"`
	TranscriptEntryCount int                      `json:"transcriptEntryCount"`
	Timestamp            time.Time                `json:"timestamp"`
}

type TranscriptData struct {
	SessionID string                     `json:"sessionId"`
	CallID    string                     `json:"callId,omitempty"`
	Entry     repository.TranscriptEntry `json:"entry"`
}

type ParticipantData struct {
	SessionID        string                       `json:"sessionId"`
	CallID           string                       `json:"callId,omitempty"`
	Type             repository.ParticipantChange `json:"type"`
	Participant      repository.Participant       `json:"participant"`
	ParticipantCount int                          `json:"participantCount"`
}
