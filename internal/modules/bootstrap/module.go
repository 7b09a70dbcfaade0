package bootstrap

import (
	"context"

	"exec_bot/internal/models"
	bootstrap "exec_bot/internal/modules/bootstrap/service"
	"exec_bot/internal/modules/config"
	exchange "exec_bot/internal/modules/exchange/service"
	notify "exec_bot/internal/modules/notify/service"
	strategy "exec_bot/internal/modules/strategy/service"

	"go.uber.org/fx"
)

func NewBooter(adapter exchange.Adapter, registry *strategy.Manager, factory *strategy.Factory, n notify.Notifier) *bootstrap.Booter {
	return bootstrap.NewBooter(adapter, registry, factory, n)
}

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			NewBooter,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, b *bootstrap.Booter) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					var presets []models.StrategyConfig
					if cfg.StrategiesFile != "" {
						p, err := bootstrap.LoadPresets(cfg.StrategiesFile)
						if err != nil {
							return err
						}
						presets = p
					}
					b.Boot(ctx, cfg.Futures, presets)
					return nil
				},
			})
		}),
	)
}
