package metrics

import (
	"github.com/foxseedlab/callscribe/internal/broadcast"
	"github.com/samber/do/v2"
)

// RegisterDI provides the metrics registry and hooks it into the broadcast gateway.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Metrics, error) {
		m := NewMetrics()
		gw := do.MustInvoke[*broadcast.Gateway](i)
		m.TrackSubscribers(gw)
		gw.AddTap(m.EventTap())
		return m, nil
	})
}
