package callevent

import (
	"errors"
	"testing"

	"github.com/foxseedlab/callscribe/internal/provider"
	"github.com/foxseedlab/callscribe/internal/repository"
)

func TestDecodeCallState(t *testing.T) {
	body := []byte(`{"value":[
		{"resourceData":{"id":"C1","state":"established"}},
		{"resource":"/communications/calls/C2","resourceData":{"state":"terminated"}},
		{"resourceData":{"state":"terminated"}}
	]}`)
	events, err := DecodeCallState(body)
	if err != nil {
		t.Fatalf("DecodeCallState returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Call != "C1" || events[0].State != "established" {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Call != "C2" || events[1].State != "terminated" {
		t.Fatalf("call id must fall back to the resource path: %+v", events[1])
	}
}

func TestDecodeCallState_Malformed(t *testing.T) {
	if _, err := DecodeCallState([]byte(`{"value":`)); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDecodeParticipants(t *testing.T) {
	body := []byte(`{"value":[
		{"changeType":"created","resource":"/communications/calls/C1/participants/p-raw",
		 "resourceData":{"id":"p-raw","info":{"identity":{"user":{"id":"u1","displayName":"Ada"},"application":{"id":"a1"}}}}},
		{"changeType":"Deleted","resource":"communications/calls/C1/participants/p2",
		 "resourceData":{"id":"p2","info":{"identity":{}}}},
		{"changeType":"created","resource":"/somewhere/else","resourceData":{"id":"x"}}
	]}`)
	events, err := DecodeParticipants(body)
	if err != nil {
		t.Fatalf("DecodeParticipants returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	first := events[0]
	if first.Call != "C1" || first.Change != ChangeCreated || first.Participant.ID != "u1" || first.Participant.DisplayName != "Ada" {
		t.Fatalf("unexpected first event: %+v", first)
	}
	second := events[1]
	if second.Change != ChangeDeleted || second.Participant.ID != "p2" || second.Participant.DisplayName != provider.UnknownDisplayName {
		t.Fatalf("unexpected second event: %+v", second)
	}
}

func TestDecodeMedia(t *testing.T) {
	e, err := DecodeMedia([]byte(`{"callId":"C1","audioBuffer":"AAECAw==","format":"pcm16","speakerId":"spk","speakerName":"Ada"}`))
	if err != nil {
		t.Fatalf("DecodeMedia returned error: %v", err)
	}
	if e.Call != "C1" || len(e.Audio) != 4 || e.Audio[3] != 3 || *e.SpeakerID != "spk" || e.SpeakerName != "Ada" {
		t.Fatalf("unexpected media event: %+v", e)
	}
}

func TestDecodeMedia_NoContent(t *testing.T) {
	for _, body := range []string{`{"audioBuffer":"AAE="}`, `{"callId":"C1"}`} {
		if _, err := DecodeMedia([]byte(body)); !errors.Is(err, ErrNoContent) {
			t.Fatalf("expected ErrNoContent for %s, got %v", body, err)
		}
	}
}

func TestDecodeMedia_InvalidBase64(t *testing.T) {
	_, err := DecodeMedia([]byte(`{"callId":"C1","audioBuffer":"***"}`))
	if err == nil || errors.Is(err, ErrNoContent) {
		t.Fatalf("expected base64 error, got %v", err)
	}
}

func TestDecodeMedia_EmptySpeakerIDIsUnknown(t *testing.T) {
	e, err := DecodeMedia([]byte(`{"callId":"C1","audioBuffer":"AAE=","speakerId":""}`))
	if err != nil {
		t.Fatalf("DecodeMedia returned error: %v", err)
	}
	if e.SpeakerID != nil {
		t.Fatalf("expected nil speaker id, got %q", *e.SpeakerID)
	}
}

func TestCallIDFromResource(t *testing.T) {
	cases := map[string]string{
		"/communications/calls/C1/participants/p1": "C1",
		"communications/calls/C2":                  "C2",
		"/communications/calls":                    "",
		"/app/something":                           "",
	}
	for in, want := range cases {
		if got := CallIDFromResource(in); got != want {
			t.Fatalf("CallIDFromResource(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMapState(t *testing.T) {
	mapped := map[string]repository.SessionStatus{
		"establishing":     repository.SessionStatusJoining,
		"established":      repository.SessionStatusActive,
		"hold":             repository.SessionStatusActive,
		"transferring":     repository.SessionStatusActive,
		"transferAccepted": repository.SessionStatusActive,
		"redirecting":      repository.SessionStatusActive,
		"terminating":      repository.SessionStatusLeaving,
		"terminated":       repository.SessionStatusEnded,
		"disconnected":     repository.SessionStatusEnded,
	}
	for state, want := range mapped {
		got, ok := MapState(state)
		if !ok || got != want {
			t.Fatalf("MapState(%q) = %s,%v, want %s", state, got, ok, want)
		}
	}
	for _, state := range []string{"", "incoming", "Established", "unknown"} {
		if _, ok := MapState(state); ok {
			t.Fatalf("MapState(%q) must not map", state)
		}
	}
}
