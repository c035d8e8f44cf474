package archive

import (
	"context"
	"log/slog"

	"github.com/foxseedlab/callscribe/internal/archive"
	"github.com/foxseedlab/callscribe/internal/config"
	"github.com/foxseedlab/callscribe/internal/discord"
	"github.com/samber/do/v2"
)

// RegisterDI provides the transcript archive: S3 when a bucket is configured, plus the Discord
// channel when mirroring is enabled.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (archive.Archiver, error) {
		c := do.MustInvoke[*config.Config](i)
		var destinations archive.Multi
		if c.ArchiveEnabled() {
			s3Archiver, err := NewS3Archiver(context.Background(), S3Config{
				Region: c.TranscriptArchiveS3Region,
				Bucket: c.TranscriptArchiveS3Bucket,
				Prefix: c.TranscriptArchiveS3Prefix,
			})
			if err != nil {
				return nil, err
			}
			destinations = append(destinations, s3Archiver)
		}
		if c.DiscordMirrorEnabled() {
			destinations = append(destinations, do.MustInvoke[*discord.Mirror](i))
		}
		if len(destinations) == 0 {
			slog.Info("transcript archive disabled")
			return archive.Noop{}, nil
		}
		return destinations, nil
	})
}
