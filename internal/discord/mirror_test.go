package discord

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/foxseedlab/callscribe/internal/broadcast"
	"github.com/foxseedlab/callscribe/internal/repository"
)

type mockClient struct {
	mu       sync.Mutex
	messages []string
	channels []string
	files    []FileMessage
	closed   bool
	block    chan struct{}
	err      error
}

func (m *mockClient) SendChannelMessage(channelID, content string) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, channelID)
	m.messages = append(m.messages, content)
	return m.err
}

func (m *mockClient) SendChannelMessageWithFile(msg FileMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, msg)
	return nil
}

func (m *mockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func transcriptEvent(text string) broadcast.Event {
	return broadcast.Event{
		Type:      broadcast.EventTranscript,
		SessionID: "S1",
		Data: broadcast.TranscriptData{
			SessionID: "S1",
			Entry:     repository.TranscriptEntry{SpeakerName: "Ada", Text: text},
		},
	}
}

func TestMirror_PostsInOrderAndDrainsOnClose(t *testing.T) {
	client := &mockClient{}
	m := NewMirror(client, "chan-1", 10)
	m.Observe(transcriptEvent("one"))
	m.Observe(transcriptEvent("two"))
	m.Observe(broadcast.Event{Type: "other", SessionID: "S1", Data: 42})

	if err := m.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if len(client.messages) != 2 || client.messages[0] != "[S1] Ada: one" || client.messages[1] != "[S1] Ada: two" {
		t.Fatalf("unexpected messages: %v", client.messages)
	}
	if client.channels[0] != "chan-1" || !client.closed {
		t.Fatalf("unexpected channel or close state: %v %v", client.channels, client.closed)
	}
	m.Observe(transcriptEvent("late"))
	if len(client.messages) != 2 {
		t.Fatal("events after Close must be ignored")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
}

func TestMirror_DropsWhenQueueFull(t *testing.T) {
	client := &mockClient{block: make(chan struct{})}
	m := NewMirror(client, "chan-1", 1)
	for i := 0; i < 10; i++ {
		m.Observe(transcriptEvent("x"))
	}
	close(client.block)
	if err := m.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	// one message may be in flight in the worker and one queued
	if n := len(client.messages); n < 1 || n > 2 {
		t.Fatalf("expected overflow to be dropped, got %d messages", n)
	}
}

func TestMirror_SendErrorsAreSwallowed(t *testing.T) {
	client := &mockClient{err: errors.New("rate limited")}
	m := NewMirror(client, "chan-1", 4)
	m.Observe(transcriptEvent("a"))
	m.Observe(transcriptEvent("b"))
	if err := m.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if len(client.messages) != 2 {
		t.Fatalf("worker must keep posting after errors, got %d", len(client.messages))
	}
}

func TestMirror_PutPostsPlainTextTranscript(t *testing.T) {
	client := &mockClient{}
	m := NewMirror(client, "chan-1", 4)
	if err := m.Put(context.Background(), "S1/transcript.json", []byte("{}"), "application/json"); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := m.Put(context.Background(), "S1/transcript.txt", []byte("hello"), "text/plain; charset=utf-8"); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if len(client.files) != 1 {
		t.Fatalf("expected one file post, got %d", len(client.files))
	}
	f := client.files[0]
	if f.ChannelID != "chan-1" || f.Filename != "transcript.txt" || f.Content != "Transcript S1" || string(f.FileBody) != "hello" {
		t.Fatalf("unexpected file message: %+v", f)
	}
}

func TestFormatEvent(t *testing.T) {
	msg := "call dropped"
	status, ok := FormatEvent(broadcast.Event{Data: broadcast.StatusData{
		SessionID:        "0123456789abcdef",
		Status:           repository.SessionStatusEnded,
		ErrorMessage:     &msg,
		ParticipantCount: 2,
	}})
	if !ok || status != "[01234567] status ENDED (participants: 2, entries: 0): call dropped" {
		t.Fatalf("unexpected status message: %q", status)
	}

	participant, ok := FormatEvent(broadcast.Event{Data: broadcast.ParticipantData{
		SessionID:        "S1",
		Type:             repository.ParticipantJoined,
		Participant:      repository.Participant{DisplayName: "Ada"},
		ParticipantCount: 1,
	}})
	if !ok || participant != "[S1] Ada joined (participants: 1)" {
		t.Fatalf("unexpected participant message: %q", participant)
	}

	long, _ := FormatEvent(transcriptEvent(strings.Repeat("あ", 3000)))
	if utf8.RuneCountInString(long) != maxMessageRunes {
		t.Fatalf("expected truncation to %d runes, got %d", maxMessageRunes, utf8.RuneCountInString(long))
	}
}
