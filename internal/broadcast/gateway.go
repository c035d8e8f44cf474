package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/callscribe/internal/repository"
)

const defaultSubscriberBuffer = 64

// Tap observes every published event regardless of session. Observe must not block.
type Tap interface {
	Observe(e Event)
}

type TapFunc func(e Event)

func (f TapFunc) Observe(e Event) { f(e) }

// Gateway multicasts session events to subscribers registered for the same session id.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
type Gateway struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
	taps        []Tap
	bufferSize  int
	now         func() time.Time
}

func NewGateway() *Gateway {
	return &Gateway{
		subscribers: make(map[string]map[*Subscription]struct{}),
		bufferSize:  defaultSubscriberBuffer,
		now:         time.Now,
	}
}

type Subscription struct {
	gateway   *Gateway
	sessionID string
	events    chan Event
	once      sync.Once
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) SessionID() string {
	return s.sessionID
}

// Close unregisters the subscription and closes its channel. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.gateway.unsubscribe(s)
	})
}

func (g *Gateway) Subscribe(sessionID string) *Subscription {
	s := &Subscription{
		gateway:   g,
		sessionID: sessionID,
		events:    make(chan Event, g.bufferSize),
	}
	g.mu.Lock()
	set, ok := g.subscribers[sessionID]
	if !ok {
		set = make(map[*Subscription]struct{})
		g.subscribers[sessionID] = set
	}
	set[s] = struct{}{}
	n := len(set)
	g.mu.Unlock()
	slog.Debug("subscriber registered", "session_id", sessionID, "subscribers", n)
	return s
}

func (g *Gateway) unsubscribe(s *Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if set, ok := g.subscribers[s.sessionID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(g.subscribers, s.sessionID)
		}
	}
	close(s.events)
	slog.Debug("subscriber removed", "session_id", s.sessionID)
}

func (g *Gateway) AddTap(t Tap) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.taps = append(g.taps, t)
}

func (g *Gateway) ActiveSubscribers(sessionID string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.subscribers[sessionID])
}

func (g *Gateway) TotalSubscribers() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, set := range g.subscribers {
		n += len(set)
	}
	return n
}

func (g *Gateway) EmitStatusUpdate(s repository.Session) {
	g.Publish(Event{
		Type:      EventStatus,
		SessionID: s.ID,
		Data: StatusData{
			SessionID:            s.ID,
			CallID:               s.CallID,
			Status:               s.Status,
			ErrorMessage:         s.ErrorMessage,
			ParticipantCount:     s.ParticipantCount(),
			TranscriptEntryCount: s.TranscriptEntryCount(),
			Timestamp:            g.now(),
		},
	})
}

func (g *Gateway) EmitTranscriptEntry(s repository.Session, entry repository.TranscriptEntry) {
	g.Publish(Event{
		Type:      EventTranscript,
		SessionID: s.ID,
		Data: TranscriptData{
			SessionID: s.ID,
			CallID:    s.CallID,
			Entry:     entry,
		},
	})
}

func (g *Gateway) EmitParticipantUpdate(s repository.Session, change repository.ParticipantChange, p repository.Participant) {
	g.Publish(Event{
		Type:      EventParticipant,
		SessionID: s.ID,
		Data: ParticipantData{
			SessionID:        s.ID,
			CallID:           s.CallID,
			Type:             change,
			Participant:      p,
			ParticipantCount: s.ParticipantCount(),
		},
	})
}

// Publish delivers e to every subscriber of e.SessionID, then to every tap.
func (g *Gateway) Publish(e Event) {
	g.mu.RLock()
	for s := range g.subscribers[e.SessionID] {
		select {
		case s.events <- e:
		default:
			slog.Warn("subscriber buffer full; dropping event", "session_id", e.SessionID, "type", e.Type)
		}
	}
	taps := g.taps
	g.mu.RUnlock()

	for _, t := range taps {
		t.Observe(e)
	}
}
