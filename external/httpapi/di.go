package httpapi

import (
	"github.com/foxseedlab/callscribe/internal/broadcast"
	"github.com/foxseedlab/callscribe/internal/callevent"
	"github.com/foxseedlab/callscribe/internal/metrics"
	"github.com/foxseedlab/callscribe/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		manager := do.MustInvoke[*session.Manager](i)
		handler := do.MustInvoke[*callevent.Handler](i)
		gw := do.MustInvoke[*broadcast.Gateway](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		return NewServer(manager, handler, gw, m), nil
	})
}
