package transcriber

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/callscribe/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const speechAPIEndpointPort = 443

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

// CloudSpeechTranscriber runs one synchronous Recognize per WAV segment.
// The gRPC client is created on first use and reused.
type CloudSpeechTranscriber struct {
	projectID       string
	credentialsJSON string
	language        string
	location        string
	model           string

	mu     sync.Mutex
	client *speech.Client
}

var _ transcriber.Transcriber = (*CloudSpeechTranscriber)(nil)

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) *CloudSpeechTranscriber {
	return &CloudSpeechTranscriber{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		language:        cfg.Language,
		location:        strings.TrimSpace(cfg.Location),
		model:           strings.TrimSpace(cfg.Model),
	}
}

func (t *CloudSpeechTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	client, err := t.speechClient(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.Recognize(ctx, t.recognizeRequest(wav))
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.InvalidArgument {
			return "", fmt.Errorf("cloud speech rejected audio: %s", st.Message())
		}
		return "", fmt.Errorf("cloud speech recognize: %w", err)
	}
	parts := make([]string, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (t *CloudSpeechTranscriber) recognizeRequest(wav []byte) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.projectID, t.location),
		Config: &speechpb.RecognitionConfig{
			Model:         t.model,
			LanguageCodes: []string{t.language},
			DecodingConfig: &speechpb.RecognitionConfig_AutoDecodingConfig{
				AutoDecodingConfig: &speechpb.AutoDetectDecodingConfig{},
			},
			Features: &speechpb.RecognitionFeatures{EnableAutomaticPunctuation: true},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: wav},
	}
}

func (t *CloudSpeechTranscriber) speechClient(ctx context.Context) (*speech.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		return t.client, nil
	}

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(t.credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}
	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if t.location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", t.location, speechAPIEndpointPort)))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create cloud speech client: %w", err)
	}
	slog.Info("cloud speech client initialized", "location", t.location, "model", t.model, "language", t.language)
	t.client = client
	return client, nil
}

func (t *CloudSpeechTranscriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
