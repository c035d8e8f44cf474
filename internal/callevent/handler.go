package callevent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/foxseedlab/callscribe/internal/audio"
	"github.com/foxseedlab/callscribe/internal/metrics"
	"github.com/foxseedlab/callscribe/internal/repository"
)

const (
	StatusProcessed = "processed"
	StatusNoContent = "no content"
)

const (
	kindCallState    = "call_state"
	kindParticipants = "participants"
	kindMedia        = "media"
)

type SessionUpdater interface {
	UpdateStatus(ctx context.Context, callID string, status repository.SessionStatus, errorMessage *string) (*repository.Session, bool, error)
	AddParticipant(ctx context.Context, callID string, p repository.Participant) (*repository.Session, bool, error)
	RemoveParticipant(ctx context.Context, callID, participantID string) (*repository.Session, bool, error)
}

type AudioIngester interface {
	ProcessAudioChunk(callID string, pcm []byte, speakerID *string, speakerName string)
	FlushAudioBuffer(ctx context.Context, callID string) error
	ClearSession(callID string)
}

// Result is what the webhook endpoint acknowledges. Handlers never fail the caller.
type Result struct {
	Processed int
}

func (r Result) Status() string {
	if r.Processed > 0 {
		return StatusProcessed
	}
	return StatusNoContent
}

// Handler applies normalized provider notifications to sessions and the audio pipeline.
// Each notification in a batch is handled independently; lookups that miss are logged and skipped.
type Handler struct {
	sessions SessionUpdater
	audio    AudioIngester
	metrics  *metrics.Metrics
}

func NewHandler(sessions SessionUpdater, a AudioIngester, m *metrics.Metrics) *Handler {
	return &Handler{sessions: sessions, audio: a, metrics: m}
}

func (h *Handler) HandleCallStateNotification(ctx context.Context, body []byte) Result {
	events, err := DecodeCallState(body)
	if err != nil {
		slog.Warn("ignoring malformed call-state notification", "error", err)
		h.metrics.RecordWebhook(kindCallState, "malformed")
		return Result{}
	}
	return h.HandleCallState(ctx, events)
}

func (h *Handler) HandleCallState(ctx context.Context, events []CallStateEvent) Result {
	var res Result
	for _, e := range events {
		if h.handleCallState(ctx, e) {
			res.Processed++
		}
	}
	return res
}

func (h *Handler) handleCallState(ctx context.Context, e CallStateEvent) bool {
	// audio is drained before the status change so late entries land before finalization
	if IsTerminalState(e.State) {
		if err := h.audio.FlushAudioBuffer(ctx, e.Call); err != nil {
			slog.Warn("failed to flush audio for terminated call", "error", err, "call_id", e.Call)
		}
		h.audio.ClearSession(e.Call)
	}

	status, ok := MapState(e.State)
	if !ok {
		slog.Debug("unmapped call state ignored", "call_id", e.Call, "state", e.State)
		h.metrics.RecordWebhook(kindCallState, "ignored")
		return false
	}
	s, applied, err := h.sessions.UpdateStatus(ctx, e.Call, status, nil)
	switch {
	case err != nil:
		slog.Error("failed to apply call state", "error", err, "call_id", e.Call, "state", e.State)
		h.metrics.RecordWebhook(kindCallState, "error")
		return false
	case s == nil:
		h.metrics.RecordWebhook(kindCallState, "unknown_call")
		return false
	case !applied:
		h.metrics.RecordWebhook(kindCallState, "ignored")
		return true
	}
	h.metrics.RecordWebhook(kindCallState, "applied")
	return true
}

func (h *Handler) HandleParticipantsNotification(ctx context.Context, body []byte) Result {
	events, err := DecodeParticipants(body)
	if err != nil {
		slog.Warn("ignoring malformed participant notification", "error", err)
		h.metrics.RecordWebhook(kindParticipants, "malformed")
		return Result{}
	}
	return h.HandleParticipants(ctx, events)
}

func (h *Handler) HandleParticipants(ctx context.Context, events []ParticipantEvent) Result {
	var res Result
	for _, e := range events {
		if h.handleParticipant(ctx, e) {
			res.Processed++
		}
	}
	return res
}

func (h *Handler) handleParticipant(ctx context.Context, e ParticipantEvent) bool {
	var (
		s       *repository.Session
		changed bool
		err     error
	)
	switch e.Change {
	case ChangeCreated:
		s, changed, err = h.sessions.AddParticipant(ctx, e.Call, repository.Participant{
			ID:          e.Participant.ID,
			DisplayName: e.Participant.DisplayName,
		})
	case ChangeDeleted:
		s, changed, err = h.sessions.RemoveParticipant(ctx, e.Call, e.Participant.ID)
	default:
		slog.Debug("participant change ignored", "call_id", e.Call, "change_type", e.Change)
		h.metrics.RecordWebhook(kindParticipants, "ignored")
		return false
	}
	switch {
	case err != nil:
		slog.Error("failed to apply participant change", "error", err, "call_id", e.Call, "participant_id", e.Participant.ID)
		h.metrics.RecordWebhook(kindParticipants, "error")
		return false
	case s == nil:
		slog.Warn("participant notification for unknown call", "call_id", e.Call, "participant_id", e.Participant.ID)
		h.metrics.RecordWebhook(kindParticipants, "unknown_call")
		return false
	case !changed:
		h.metrics.RecordWebhook(kindParticipants, "ignored")
		return true
	}
	slog.Info("participant updated", "session_id", s.ID, "call_id", e.Call, "participant_id", e.Participant.ID, "change_type", e.Change, "participant_count", s.ParticipantCount())
	h.metrics.RecordWebhook(kindParticipants, "applied")
	return true
}

func (h *Handler) HandleMediaNotification(ctx context.Context, body []byte) Result {
	e, err := DecodeMedia(body)
	if err != nil {
		if !errors.Is(err, ErrNoContent) {
			slog.Warn("ignoring malformed media notification", "error", err)
			h.metrics.RecordWebhook(kindMedia, "malformed")
		} else {
			h.metrics.RecordWebhook(kindMedia, "empty")
		}
		return Result{}
	}
	return h.HandleMedia(ctx, *e)
}

// HandleMedia converts the chunk to PCM16 and hands it to the pipeline. Transcription happens
// asynchronously; ingestion completes regardless of its outcome.
func (h *Handler) HandleMedia(_ context.Context, e MediaEvent) Result {
	if e.Call == "" || len(e.Audio) == 0 {
		h.metrics.RecordWebhook(kindMedia, "empty")
		return Result{}
	}
	pcm := audio.ToPCM16(e.Audio, e.Format)
	h.audio.ProcessAudioChunk(e.Call, pcm, e.SpeakerID, e.SpeakerName)
	h.metrics.RecordWebhook(kindMedia, "applied")
	return Result{Processed: 1}
}
