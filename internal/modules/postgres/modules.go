package postgres

import (
	"context"
	"fmt"

	"exec_bot/internal/modules/config"
	"exec_bot/pkg/db"
	"exec_bot/pkg/logger"

	"go.uber.org/fx"
)

// NewTxManager поднимает пул, если задан db_dsn. Без DSN вернёт nil:
// журнал тогда не пишется.
func NewTxManager(lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
	if cfg.DB == "" {
		logger.Info("[DB] db_dsn is empty, order journal disabled")
		return nil, nil
	}
	ctx := context.Background()
	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN: cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}
	if err := poolMaster.Ping(ctx); err != nil {
		poolMaster.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	m := db.NewPgTxManager(poolMaster)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			m.Close()
			return nil
		},
	})
	return m, nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			NewTxManager,
		),
	)
}
