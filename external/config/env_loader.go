package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/callscribe/internal/config"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Env      string `env:"ENV" envDefault:"production"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DatabaseURL string `env:"DATABASE_URL,required"`

	MSGraphClientID     string        `env:"MS_GRAPH_CLIENT_ID"`
	MSGraphClientSecret string        `env:"MS_GRAPH_CLIENT_SECRET"`
	MSGraphTenantID     string        `env:"MS_GRAPH_TENANT_ID"`
	TeamsBotCallbackURL string        `env:"TEAMS_BOT_CALLBACK_URL"`
	MSGraphBaseURL      string        `env:"MS_GRAPH_BASE_URL" envDefault:"https://graph.microsoft.com/v1.0"`
	MSLoginBaseURL      string        `env:"MS_LOGIN_BASE_URL" envDefault:"https://login.microsoftonline.com"`
	ProviderHTTPTimeout time.Duration `env:"PROVIDER_HTTP_TIMEOUT" envDefault:"15s"`

	TranscriberBackend         string        `env:"TRANSCRIBER_BACKEND" envDefault:"whisper"`
	WhisperAPIURL              string        `env:"WHISPER_API_URL" envDefault:"http://localhost:8000"`
	TranscribeTimeout          time.Duration `env:"TRANSCRIBE_TIMEOUT" envDefault:"60s"`
	DefaultTranscribeLanguage  string        `env:"DEFAULT_TRANSCRIBE_LANGUAGE" envDefault:"en-US"`
	GoogleCloudProjectID       string        `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string        `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string        `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string        `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"long"`

	TranscriptTimezone   string `env:"TRANSCRIPT_TIMEZONE" envDefault:"UTC"`
	TranscriptWebhookURL string `env:"TRANSCRIPT_WEBHOOK_URL"`

	TranscriptArchiveS3Bucket string `env:"TRANSCRIPT_ARCHIVE_S3_BUCKET"`
	TranscriptArchiveS3Region string `env:"TRANSCRIPT_ARCHIVE_S3_REGION" envDefault:"us-east-1"`
	TranscriptArchiveS3Prefix string `env:"TRANSCRIPT_ARCHIVE_S3_PREFIX" envDefault:"transcripts"`

	DiscordToken           string `env:"DISCORD_TOKEN"`
	DiscordMirrorChannelID string `env:"DISCORD_MIRROR_CHANNEL_ID"`
	SessionHistoryLimit    int    `env:"SESSION_HISTORY_LIMIT" envDefault:"20"`
}

func Load() (*internalconfig.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		HTTPAddr:                   raw.HTTPAddr,
		DatabaseURL:                raw.DatabaseURL,
		MSGraphClientID:            raw.MSGraphClientID,
		MSGraphClientSecret:        raw.MSGraphClientSecret,
		MSGraphTenantID:            raw.MSGraphTenantID,
		TeamsBotCallbackURL:        raw.TeamsBotCallbackURL,
		MSGraphBaseURL:             raw.MSGraphBaseURL,
		MSLoginBaseURL:             raw.MSLoginBaseURL,
		ProviderHTTPTimeout:        raw.ProviderHTTPTimeout,
		TranscriberBackend:         raw.TranscriberBackend,
		WhisperAPIURL:              raw.WhisperAPIURL,
		TranscribeTimeout:          raw.TranscribeTimeout,
		DefaultTranscribeLanguage:  raw.DefaultTranscribeLanguage,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		TranscriptTimezone:         raw.TranscriptTimezone,
		TranscriptWebhookURL:       raw.TranscriptWebhookURL,
		TranscriptArchiveS3Bucket:  raw.TranscriptArchiveS3Bucket,
		TranscriptArchiveS3Region:  raw.TranscriptArchiveS3Region,
		TranscriptArchiveS3Prefix:  raw.TranscriptArchiveS3Prefix,
		DiscordToken:               raw.DiscordToken,
		DiscordMirrorChannelID:     raw.DiscordMirrorChannelID,
		SessionHistoryLimit:        raw.SessionHistoryLimit,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
