package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/callscribe/internal/archive"
	"github.com/foxseedlab/callscribe/internal/repository"
	"github.com/foxseedlab/callscribe/internal/webhook"
)

// Finalizer runs once per session after it first reaches ENDED.
type Finalizer interface {
	Finalize(ctx context.Context, s repository.Session)
}

// TranscriptFinalizer renders the transcript and hands it to the webhook and archive destinations.
// Each destination is independent: a failure is logged and the others still run.
type TranscriptFinalizer struct {
	webhook  webhook.Sender
	archive  archive.Archiver
	timezone string
	loc      *time.Location
}

func NewTranscriptFinalizer(wh webhook.Sender, ar archive.Archiver, timezone string) *TranscriptFinalizer {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		slog.Warn("invalid transcript timezone; using UTC", "error", err, "timezone", timezone)
		loc, timezone = time.UTC, "UTC"
	}
	if ar == nil {
		ar = archive.Noop{}
	}
	return &TranscriptFinalizer{webhook: wh, archive: ar, timezone: timezone, loc: loc}
}

func (f *TranscriptFinalizer) Finalize(ctx context.Context, s repository.Session) {
	payload := buildTranscriptPayload(s, f.timezone, f.loc)
	text := buildTranscriptText(s, f.timezone, f.loc)
	slog.Info("finalizing session transcript", "session_id", s.ID, "call_id", s.CallID, "entries", payload.EntryCount)

	if f.webhook != nil {
		if err := f.webhook.SendTranscript(ctx, payload); err != nil {
			slog.Error("failed to send webhook transcript", "error", err, "session_id", s.ID)
		}
	}

	doc, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode transcript document", "error", err, "session_id", s.ID)
		return
	}
	if err := f.archive.Put(ctx, transcriptObjectName(s.ID, "txt"), text, "text/plain; charset=utf-8"); err != nil {
		slog.Error("failed to archive transcript text", "error", err, "session_id", s.ID)
	}
	if err := f.archive.Put(ctx, transcriptObjectName(s.ID, "json"), doc, "application/json"); err != nil {
		slog.Error("failed to archive transcript document", "error", err, "session_id", s.ID)
	}
}

func transcriptObjectName(sessionID, ext string) string {
	return fmt.Sprintf("%s/transcript.%s", sessionID, ext)
}
