package callevent

import (
	"github.com/foxseedlab/callscribe/internal/audio"
	"github.com/foxseedlab/callscribe/internal/metrics"
	"github.com/foxseedlab/callscribe/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Handler, error) {
		manager := do.MustInvoke[*session.Manager](i)
		pipeline := do.MustInvoke[*audio.Pipeline](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		return NewHandler(manager, pipeline, m), nil
	})
}
