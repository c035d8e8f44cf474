package discord

import (
	"github.com/foxseedlab/callscribe/internal/broadcast"
	"github.com/foxseedlab/callscribe/internal/config"
	"github.com/samber/do/v2"
)

// RegisterDI provides the channel mirror and attaches it to the gateway.
// Resolve it only when config.DiscordMirrorEnabled reports true.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Mirror, error) {
		c := do.MustInvoke[*config.Config](i)
		client := do.MustInvoke[Client](i)
		gw := do.MustInvoke[*broadcast.Gateway](i)
		m := NewMirror(client, c.DiscordMirrorChannelID, defaultMirrorQueueSize)
		gw.AddTap(m)
		return m, nil
	})
}
