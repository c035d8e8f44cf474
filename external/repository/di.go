package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/callscribe/internal/config"
	"github.com/foxseedlab/callscribe/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
)

const databaseInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (repository.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx, cancel := context.WithTimeout(context.Background(), databaseInitTimeout)
		defer cancel()
		return Open(ctx, cfg.DatabaseURL)
	})
}

// Open picks the driver from the URL scheme: postgres/postgresql use pgx, sqlite/file use modernc sqlite.
func Open(ctx context.Context, databaseURL string) (repository.Repository, error) {
	if dsn, ok := sqliteDSN(databaseURL); ok {
		r, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return r, nil
	}

	p, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := RunMigration(ctx, p); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to run migration: %w", err)
	}
	return NewPostgresRepository(p), nil
}

func sqliteDSN(databaseURL string) (string, bool) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return strings.TrimPrefix(databaseURL, "sqlite://"), true
	case strings.HasPrefix(databaseURL, "sqlite:"):
		return strings.TrimPrefix(databaseURL, "sqlite:"), true
	case strings.HasPrefix(databaseURL, "file:"):
		return databaseURL, true
	default:
		return "", false
	}
}
