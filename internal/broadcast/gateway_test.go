package broadcast

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/callscribe/internal/repository"
)

func drain(s *Subscription) []Event {
	var out []Event
	for {
		select {
		case e := <-s.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestGateway_FiltersBySession(t *testing.T) {
	g := NewGateway()
	s1 := g.Subscribe("S1")
	defer s1.Close()
	s2 := g.Subscribe("S2")
	defer s2.Close()

	for i := 0; i < 10; i++ {
		g.EmitStatusUpdate(repository.Session{ID: "S1", Status: repository.SessionStatusActive})
		g.EmitTranscriptEntry(repository.Session{ID: "S2"}, repository.TranscriptEntry{Text: "hello"})
	}

	got1 := drain(s1)
	got2 := drain(s2)
	if len(got1) != 10 || len(got2) != 10 {
		t.Fatalf("expected 10 events each, got %d and %d", len(got1), len(got2))
	}
	for _, e := range got1 {
		if e.SessionID != "S1" || e.Type != EventStatus {
			t.Fatalf("S1 subscriber received foreign event: %+v", e)
		}
	}
	for _, e := range got2 {
		if e.SessionID != "S2" || e.Type != EventTranscript {
			t.Fatalf("S2 subscriber received foreign event: %+v", e)
		}
	}
}

func TestGateway_DeliversToEverySubscriberOfSession(t *testing.T) {
	g := NewGateway()
	a := g.Subscribe("S1")
	defer a.Close()
	b := g.Subscribe("S1")
	defer b.Close()

	g.EmitParticipantUpdate(repository.Session{ID: "S1"}, repository.ParticipantJoined, repository.Participant{ID: "p1"})

	if len(drain(a)) != 1 || len(drain(b)) != 1 {
		t.Fatal("expected both subscribers to receive the event")
	}
}

func TestGateway_CloseRemovesBookkeeping(t *testing.T) {
	g := NewGateway()
	a := g.Subscribe("S1")
	b := g.Subscribe("S1")
	if n := g.ActiveSubscribers("S1"); n != 2 {
		t.Fatalf("expected 2 subscribers, got %d", n)
	}

	a.Close()
	a.Close()
	if n := g.ActiveSubscribers("S1"); n != 1 {
		t.Fatalf("expected 1 subscriber, got %d", n)
	}
	if _, ok := <-a.Events(); ok {
		t.Fatal("expected closed channel")
	}

	b.Close()
	g.mu.RLock()
	_, exists := g.subscribers["S1"]
	g.mu.RUnlock()
	if exists {
		t.Fatal("expected per-session entry to be dropped")
	}
	if g.TotalSubscribers() != 0 {
		t.Fatal("expected no subscribers")
	}
}

func TestGateway_FullSubscriberDoesNotBlock(t *testing.T) {
	g := NewGateway()
	g.bufferSize = 2
	s := g.Subscribe("S1")
	defer s.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			g.EmitStatusUpdate(repository.Session{ID: "S1"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if n := len(drain(s)); n != 2 {
		t.Fatalf("expected buffer-sized delivery, got %d", n)
	}
}

func TestGateway_TapsSeeEverySession(t *testing.T) {
	g := NewGateway()
	var mu sync.Mutex
	var seen []string
	g.AddTap(TapFunc(func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.SessionID)
	}))

	g.EmitStatusUpdate(repository.Session{ID: "S1"})
	g.EmitStatusUpdate(repository.Session{ID: "S2"})

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "S1" || seen[1] != "S2" {
		t.Fatalf("unexpected tap observations: %v", seen)
	}
}

func TestEvent_WireFormat(t *testing.T) {
	g := NewGateway()
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }
	s := g.Subscribe("S1")
	defer s.Close()

	g.EmitStatusUpdate(repository.Session{
		ID:     "S1",
		CallID: "C1",
		Status: repository.SessionStatusEnded,
		Participants: []repository.Participant{
			{ID: "p1"},
			{ID: "p2", LeftAt: &fixed},
		},
	})
	e := <-s.Events()
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if decoded["type"] != "status" {
		t.Fatalf("unexpected type: %v", decoded["type"])
	}
	data, ok := decoded["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data object: %s", b)
	}
	if data["sessionId"] != "S1" || data["callId"] != "C1" || data["status"] != "ENDED" {
		t.Fatalf("unexpected data: %v", data)
	}
	if data["participantCount"] != float64(1) {
		t.Fatalf("expected derived participant count 1, got %v", data["participantCount"])
	}
	if _, leaked := decoded["SessionID"]; leaked {
		t.Fatal("routing key must not be serialized")
	}
}
