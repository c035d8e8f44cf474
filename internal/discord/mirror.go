package discord

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/foxseedlab/callscribe/internal/broadcast"
)

const defaultMirrorQueueSize = 256

// Mirror is a broadcast tap that reposts live events to a Discord channel. It also acts as an archive
// destination for the plain-text transcript. Posting happens on a single worker so messages keep
// publish order; when the queue is full new messages are dropped.
type Mirror struct {
	client    Client
	channelID string

	mu     sync.RWMutex
	closed bool
	queue  chan FileMessage
	done   chan struct{}
}

func NewMirror(client Client, channelID string, queueSize int) *Mirror {
	if queueSize <= 0 {
		queueSize = defaultMirrorQueueSize
	}
	m := &Mirror{
		client:    client,
		channelID: channelID,
		queue:     make(chan FileMessage, queueSize),
		done:      make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Mirror) Observe(e broadcast.Event) {
	content, ok := FormatEvent(e)
	if !ok {
		return
	}
	if !m.enqueue(FileMessage{ChannelID: m.channelID, Content: content}) {
		slog.Warn("discord mirror queue full; dropping message", "session_id", e.SessionID, "type", e.Type)
	}
}

// Put queues a finished transcript as a file attachment. Only plain-text artifacts are posted.
func (m *Mirror) Put(_ context.Context, name string, body []byte, contentType string) error {
	if !strings.HasPrefix(contentType, "text/plain") {
		return nil
	}
	msg := FileMessage{
		ChannelID: m.channelID,
		Content:   "Transcript " + path.Dir(name),
		Filename:  path.Base(name),
		FileBody:  body,
	}
	if !m.enqueue(msg) {
		slog.Warn("discord mirror queue full; dropping transcript", "name", name)
	}
	return nil
}

func (m *Mirror) enqueue(msg FileMessage) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return true
	}
	select {
	case m.queue <- msg:
		return true
	default:
		return false
	}
}

func (m *Mirror) run() {
	defer close(m.done)
	for msg := range m.queue {
		var err error
		if msg.FileBody != nil {
			err = m.client.SendChannelMessageWithFile(msg)
		} else {
			err = m.client.SendChannelMessage(msg.ChannelID, msg.Content)
		}
		if err != nil {
			slog.Warn("failed to mirror to discord", "error", err, "channel_id", msg.ChannelID)
		}
	}
}

// Close stops accepting events, posts what is already queued and closes the client.
func (m *Mirror) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	<-m.done
	return m.client.Close()
}
