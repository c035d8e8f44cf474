package callevent

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/callscribe/internal/provider"
)

// ErrNoContent marks a notification that carries nothing to process.
var ErrNoContent = errors.New("notification has no content")

type callStateNotification struct {
	Value []struct {
		Resource     string `json:"resource"`
		ResourceData struct {
			ID    string `json:"id"`
			State string `json:"state"`
		} `json:"resourceData"`
	} `json:"value"`
}

type participantNotification struct {
	Value []struct {
		ChangeType   string `json:"changeType"`
		Resource     string `json:"resource"`
		ResourceData struct {
			ID   string `json:"id"`
			Info struct {
				Identity provider.IdentitySet `json:"identity"`
			} `json:"info"`
		} `json:"resourceData"`
	} `json:"value"`
}

type mediaNotification struct {
	CallID      string     `json:"callId"`
	AudioBuffer string     `json:"audioBuffer"`
	Format      string     `json:"format"`
	SpeakerID   *string    `json:"speakerId"`
	SpeakerName string     `json:"speakerName"`
	Timestamp   *time.Time `json:"timestamp"`
}

// DecodeCallState normalizes a call-state batch. Entries without a call id are dropped.
func DecodeCallState(body []byte) ([]CallStateEvent, error) {
	var n callStateNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode call-state notification: %w", err)
	}
	events := make([]CallStateEvent, 0, len(n.Value))
	for _, v := range n.Value {
		callID := provider.FirstNonEmpty(v.ResourceData.ID, CallIDFromResource(v.Resource))
		if callID == "" {
			continue
		}
		events = append(events, CallStateEvent{Call: callID, State: v.ResourceData.State})
	}
	return events, nil
}

// DecodeParticipants normalizes a participant batch. The call id comes from the resource path.
func DecodeParticipants(body []byte) ([]ParticipantEvent, error) {
	var n participantNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode participant notification: %w", err)
	}
	events := make([]ParticipantEvent, 0, len(n.Value))
	for _, v := range n.Value {
		callID := CallIDFromResource(v.Resource)
		if callID == "" {
			continue
		}
		events = append(events, ParticipantEvent{
			Call:        callID,
			Change:      ChangeType(strings.ToLower(v.ChangeType)),
			Participant: provider.ResolveIdentity(v.ResourceData.Info.Identity, v.ResourceData.ID),
		})
	}
	return events, nil
}

// DecodeMedia normalizes one media chunk. A missing call id or audio buffer yields ErrNoContent.
func DecodeMedia(body []byte) (*MediaEvent, error) {
	var n mediaNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode media notification: %w", err)
	}
	if n.CallID == "" || n.AudioBuffer == "" {
		return nil, ErrNoContent
	}
	audio, err := base64.StdEncoding.DecodeString(n.AudioBuffer)
	if err != nil {
		return nil, fmt.Errorf("decode audio buffer: %w", err)
	}
	if n.SpeakerID != nil && *n.SpeakerID == "" {
		n.SpeakerID = nil
	}
	return &MediaEvent{
		Call:        n.CallID,
		Audio:       audio,
		Format:      n.Format,
		SpeakerID:   n.SpeakerID,
		SpeakerName: n.SpeakerName,
		Timestamp:   n.Timestamp,
	}, nil
}

// CallIDFromResource returns the path segment following "calls" in a resource path such as
// "/communications/calls/{id}/participants/{pid}".
func CallIDFromResource(resource string) string {
	segments := strings.Split(strings.Trim(resource, "/"), "/")
	for i, seg := range segments {
		if strings.EqualFold(seg, "calls") && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}
