package session

import (
	"github.com/foxseedlab/callscribe/internal/archive"
	"github.com/foxseedlab/callscribe/internal/broadcast"
	"github.com/foxseedlab/callscribe/internal/config"
	"github.com/foxseedlab/callscribe/internal/metrics"
	"github.com/foxseedlab/callscribe/internal/provider"
	"github.com/foxseedlab/callscribe/internal/repository"
	"github.com/foxseedlab/callscribe/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		pc := do.MustInvoke[provider.Client](i)
		gw := do.MustInvoke[*broadcast.Gateway](i)
		wh := do.MustInvoke[webhook.Sender](i)
		ar := do.MustInvoke[archive.Archiver](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		fin := NewTranscriptFinalizer(wh, ar, cfg.TranscriptTimezone)
		return NewManager(repo, pc, gw, fin, m, cfg.SessionHistoryLimit), nil
	})
}
