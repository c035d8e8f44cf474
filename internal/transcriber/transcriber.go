package transcriber

import "context"

// Transcriber turns one WAV container of speech into text. An empty string means nothing was recognized.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}
