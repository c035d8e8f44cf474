package callevent

import (
	"time"

	"github.com/foxseedlab/callscribe/internal/provider"
)

// Event is one normalized provider notification. The concrete types are CallStateEvent,
// ParticipantEvent and MediaEvent.
type Event interface {
	CallID() string
	isEvent()
}

type CallStateEvent struct {
	Call  string
	State string
}

func (e CallStateEvent) CallID() string { return e.Call }
func (CallStateEvent) isEvent()         {}

type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeDeleted ChangeType = "deleted"
	ChangeUpdated ChangeType = "updated"
)

type ParticipantEvent struct {
	Call        string
	Change      ChangeType
	Participant provider.ResolvedIdentity
}

func (e ParticipantEvent) CallID() string { return e.Call }
func (ParticipantEvent) isEvent()         {}

type MediaEvent struct {
	Call        string
	Audio       []byte
	Format      string
	SpeakerID   *string
	SpeakerName string
	Timestamp   *time.Time
}

func (e MediaEvent) CallID() string { return e.Call }
func (MediaEvent) isEvent()         {}
