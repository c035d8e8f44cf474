package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/foxseedlab/callscribe/internal/transcriber"
)

const (
	whisperFilename    = "audio.wav"
	maxErrorBodyLength = 4 << 10
)

// WhisperTranscriber posts WAV audio to a self-hosted Whisper service's /transcribe endpoint.
type WhisperTranscriber struct {
	baseURL  string
	language string
	client   *http.Client
}

type whisperResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func NewWhisperTranscriber(baseURL, language string) transcriber.Transcriber {
	return &WhisperTranscriber{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		client:   &http.Client{},
	}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	body, contentType, err := buildWhisperForm(wav, whisperLanguage(t.language))
	if err != nil {
		return "", fmt.Errorf("build whisper request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/transcribe", body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		return "", fmt.Errorf("whisper returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var out whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode whisper response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

func buildWhisperForm(wav []byte, language string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, whisperFilename))
	h.Set("Content-Type", "audio/wav")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(wav); err != nil {
		return nil, "", err
	}
	if language != "" {
		if err := w.WriteField("language", language); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// whisperLanguage reduces a BCP-47 tag such as en-US to the bare language Whisper expects.
func whisperLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}
