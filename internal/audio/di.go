package audio

import (
	"github.com/foxseedlab/callscribe/internal/config"
	"github.com/foxseedlab/callscribe/internal/metrics"
	"github.com/foxseedlab/callscribe/internal/session"
	"github.com/foxseedlab/callscribe/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Pipeline, error) {
		cfg := do.MustInvoke[*config.Config](i)
		stt := do.MustInvoke[transcriber.Transcriber](i)
		manager := do.MustInvoke[*session.Manager](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		p := NewPipeline(stt, manager, m, cfg.TranscribeTimeout)
		manager.AttachAudio(p)
		return p, nil
	})
}
