package audio

import (
	"log/slog"
	"strings"
)

const FormatPCM16 = "pcm16"

// ToPCM16 converts an inbound chunk to the pipeline's internal representation.
// Only pcm16 is understood; other formats are passed through unchanged.
func ToPCM16(data []byte, format string) []byte {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" || f == FormatPCM16 {
		return data
	}
	slog.Warn("audio format decoding not implemented; passing through", "format", format, "bytes", len(data))
	return data
}
