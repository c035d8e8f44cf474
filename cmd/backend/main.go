package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	archiveimpl "github.com/foxseedlab/callscribe/external/archive"
	configloader "github.com/foxseedlab/callscribe/external/config"
	discordimpl "github.com/foxseedlab/callscribe/external/discord"
	"github.com/foxseedlab/callscribe/external/graph"
	"github.com/foxseedlab/callscribe/external/httpapi"
	repositoryimpl "github.com/foxseedlab/callscribe/external/repository"
	transcriberimpl "github.com/foxseedlab/callscribe/external/transcriber"
	webhookimpl "github.com/foxseedlab/callscribe/external/webhook"
	"github.com/foxseedlab/callscribe/internal/audio"
	"github.com/foxseedlab/callscribe/internal/broadcast"
	"github.com/foxseedlab/callscribe/internal/callevent"
	"github.com/foxseedlab/callscribe/internal/config"
	"github.com/foxseedlab/callscribe/internal/discord"
	"github.com/foxseedlab/callscribe/internal/metrics"
	"github.com/foxseedlab/callscribe/internal/repository"
	"github.com/foxseedlab/callscribe/internal/session"
	"github.com/foxseedlab/callscribe/internal/transcriber"
	"github.com/samber/do/v2"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "transcriber_backend", cfg.TranscriberBackend, "provider_configured", cfg.ProviderConfigured())

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	if err := run(cfg, injector); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	broadcast.RegisterDI(injector)
	metrics.RegisterDI(injector)
	repositoryimpl.RegisterDI(injector)
	graph.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	discordimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	archiveimpl.RegisterDI(injector)
	session.RegisterDI(injector)
	audio.RegisterDI(injector)
	callevent.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}

func run(cfg *config.Config, injector do.Injector) error {
	var mirror *discord.Mirror
	if cfg.DiscordMirrorEnabled() {
		mirror = do.MustInvoke[*discord.Mirror](injector)
		slog.Info("startup: discord mirror enabled", "channel_id", cfg.DiscordMirrorChannelID)
	}
	manager := do.MustInvoke[*session.Manager](injector)
	// resolving the pipeline attaches it to the manager for end-of-call flushes
	pipeline := do.MustInvoke[*audio.Pipeline](injector)
	server := do.MustInvoke[*httpapi.Server](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(cfg.HTTPAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := pipeline.Wait(shutdownCtx); err != nil {
			slog.Warn("pending transcriptions abandoned", "error", err)
		}
		if err := manager.Wait(shutdownCtx); err != nil {
			slog.Warn("pending finalizations abandoned", "error", err)
		}
		if mirror != nil {
			errs = append(errs, mirror.Close())
		}
		closeIfCloser("transcriber", do.MustInvoke[transcriber.Transcriber](injector))
		closeIfCloser("repository", do.MustInvoke[repository.Repository](injector))
		return errors.Join(errs...)
	})
	return g.Wait()
}

func closeIfCloser(name string, v any) {
	c, ok := v.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		slog.Error("close failed", "component", name, "error", err)
	}
}
