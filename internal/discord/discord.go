package discord

import (
	"fmt"
	"strings"

	"github.com/foxseedlab/callscribe/internal/broadcast"
)

// maxMessageRunes is Discord's per-message content limit.
const maxMessageRunes = 2000

type FileMessage struct {
	ChannelID string
	Content   string
	Filename  string
	FileBody  []byte
}

// Client is the outbound Discord surface used to mirror live session activity into a channel.
type Client interface {
	SendChannelMessage(channelID, content string) error
	SendChannelMessageWithFile(msg FileMessage) error
	Close() error
}

// FormatEvent renders a live event as a single channel message. Unknown payloads report false.
func FormatEvent(e broadcast.Event) (string, bool) {
	var msg string
	switch d := e.Data.(type) {
	case broadcast.StatusData:
		msg = fmt.Sprintf("[%s] status %s (participants: %d, entries: %d)", shortID(d.SessionID), d.Status, d.ParticipantCount, d.TranscriptEntryCount)
		if d.ErrorMessage != nil && *d.ErrorMessage != "" {
			msg += ": " + *d.ErrorMessage
		}
	case broadcast.TranscriptData:
		msg = fmt.Sprintf("[%s] %s: %s", shortID(d.SessionID), d.Entry.SpeakerName, d.Entry.Text)
	case broadcast.ParticipantData:
		msg = fmt.Sprintf("[%s] %s %s (participants: %d)", shortID(d.SessionID), d.Participant.DisplayName, d.Type, d.ParticipantCount)
	default:
		return "", false
	}
	return truncateRunes(msg, maxMessageRunes), true
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit-1])) + "…"
}
