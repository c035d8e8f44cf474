package config

import (
	"fmt"
	"time"
)

const (
	TranscriberBackendWhisper           = "whisper"
	TranscriberBackendGoogleCloudSpeech = "google-cloud-speech"
)

type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	MSGraphClientID     string
	MSGraphClientSecret string
	MSGraphTenantID     string
	TeamsBotCallbackURL string
	MSGraphBaseURL      string
	MSLoginBaseURL      string
	ProviderHTTPTimeout time.Duration

	TranscriberBackend         string
	WhisperAPIURL              string
	TranscribeTimeout          time.Duration
	DefaultTranscribeLanguage  string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string

	TranscriptTimezone   string
	TranscriptWebhookURL string

	TranscriptArchiveS3Bucket string
	TranscriptArchiveS3Region string
	TranscriptArchiveS3Prefix string

	DiscordToken           string
	DiscordMirrorChannelID string
	SessionHistoryLimit    int
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.ProviderHTTPTimeout <= 0 {
		return fmt.Errorf("PROVIDER_HTTP_TIMEOUT must be positive, got %s", c.ProviderHTTPTimeout)
	}
	if c.TranscribeTimeout <= 0 {
		return fmt.Errorf("TRANSCRIBE_TIMEOUT must be positive, got %s", c.TranscribeTimeout)
	}
	if c.SessionHistoryLimit <= 0 {
		return fmt.Errorf("SESSION_HISTORY_LIMIT must be positive, got %d", c.SessionHistoryLimit)
	}
	switch c.TranscriberBackend {
	case TranscriberBackendWhisper:
		if c.WhisperAPIURL == "" {
			return fmt.Errorf("WHISPER_API_URL is required when TRANSCRIBER_BACKEND=%s", TranscriberBackendWhisper)
		}
	case TranscriberBackendGoogleCloudSpeech:
		if c.GoogleCloudProjectID == "" || c.GoogleCloudCredentialsJSON == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID and GOOGLE_CLOUD_CREDENTIALS_JSON are required when TRANSCRIBER_BACKEND=%s", TranscriberBackendGoogleCloudSpeech)
		}
	default:
		return fmt.Errorf("TRANSCRIBER_BACKEND is invalid: %q", c.TranscriberBackend)
	}
	if _, err := time.LoadLocation(c.TranscriptTimezone); err != nil {
		return fmt.Errorf("TRANSCRIPT_TIMEZONE is invalid: %w", err)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "MS_GRAPH_BASE_URL", value: c.MSGraphBaseURL},
		{name: "MS_LOGIN_BASE_URL", value: c.MSLoginBaseURL},
		{name: "DEFAULT_TRANSCRIBE_LANGUAGE", value: c.DefaultTranscribeLanguage},
		{name: "TRANSCRIPT_TIMEZONE", value: c.TranscriptTimezone},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ProviderConfigured reports whether every credential needed to place calls is present.
// Missing provider settings do not fail startup; joins are rejected instead.
func (c *Config) ProviderConfigured() bool {
	return c.MSGraphClientID != "" &&
		c.MSGraphClientSecret != "" &&
		c.MSGraphTenantID != "" &&
		c.TeamsBotCallbackURL != ""
}

func (c *Config) ArchiveEnabled() bool {
	return c.TranscriptArchiveS3Bucket != ""
}

func (c *Config) DiscordMirrorEnabled() bool {
	return c.DiscordToken != "" && c.DiscordMirrorChannelID != ""
}
