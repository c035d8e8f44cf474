package transcriber

import (
	"github.com/foxseedlab/callscribe/internal/config"
	"github.com/foxseedlab/callscribe/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Transcriber, error) {
		c := do.MustInvoke[*config.Config](i)
		return New(c), nil
	})
}

// New selects the speech-to-text backend named by the configuration.
func New(c *config.Config) transcriber.Transcriber {
	if c.TranscriberBackend == config.TranscriberBackendGoogleCloudSpeech {
		return NewCloudSpeechTranscriber(CloudSpeechConfig{
			ProjectID:       c.GoogleCloudProjectID,
			CredentialsJSON: c.GoogleCloudCredentialsJSON,
			Language:        c.DefaultTranscribeLanguage,
			Location:        c.GoogleCloudSpeechLocation,
			Model:           c.GoogleCloudSpeechModel,
		})
	}
	return NewWhisperTranscriber(c.WhisperAPIURL, c.DefaultTranscribeLanguage)
}
