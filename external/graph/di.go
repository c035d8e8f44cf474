package graph

import (
	"github.com/foxseedlab/callscribe/internal/config"
	"github.com/foxseedlab/callscribe/internal/provider"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (provider.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewClient(Config{
			ClientID:     c.MSGraphClientID,
			ClientSecret: c.MSGraphClientSecret,
			TenantID:     c.MSGraphTenantID,
			CallbackURL:  c.TeamsBotCallbackURL,
			BaseURL:      c.MSGraphBaseURL,
			LoginBaseURL: c.MSLoginBaseURL,
			HTTPTimeout:  c.ProviderHTTPTimeout,
		}, NewTokenCache()), nil
	})
}
