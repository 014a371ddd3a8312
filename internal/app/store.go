// Package app wires configuration to a connected record store.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/healthreport/internal/config"
	"github.com/hamed0406/healthreport/internal/repo"
	"github.com/hamed0406/healthreport/internal/repo/memory"
	"github.com/hamed0406/healthreport/internal/repo/postgres"
	"github.com/hamed0406/healthreport/internal/repo/sqlite"
)

type schemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// OpenStore connects the configured store. The caller owns the result and
// must Close it on every exit path.
func OpenStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.Store, error) {
	var (
		store repo.Store
		err   error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		if cfg.Fixtures == "" {
			store = memory.New()
		} else if store, err = memory.Load(cfg.Fixtures); err != nil {
			return nil, fmt.Errorf("%w: %v", repo.ErrStoreUnavailable, err)
		}
	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("store driver %s needs DATABASE_URL", cfg.StoreDriver)
		}
		if store, err = postgres.New(ctx, cfg.DatabaseURL, log); err != nil {
			return nil, err
		}
	case config.DriverSQLite:
		if store, err = sqlite.Open(ctx, cfg.SQLitePath, log); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if se, ok := store.(schemaEnsurer); ok && cfg.EnsureSchema {
		if err := se.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		log.Info("schema_ensured", zap.String("driver", cfg.StoreDriver))
	}
	log.Info("store_opened", zap.String("driver", cfg.StoreDriver))
	return store, nil
}
