package runner

import (
	"context"

	"exec_bot/internal/modules/config"
	health "exec_bot/internal/modules/health/service"
	marketdata "exec_bot/internal/modules/marketdata/service"
	order "exec_bot/internal/modules/order/service"
	strategy "exec_bot/internal/modules/strategy/service"

	"go.uber.org/fx"
)

func New(cfg *config.Config, src *marketdata.Source, strategies *strategy.Manager, orders *order.Manager, state *health.State) *Manager {
	return NewManager(src, strategies, orders, state, Options{
		Symbols:         cfg.Market.Symbols,
		PollInterval:    cfg.Market.PollInterval,
		RefreshInterval: cfg.Order.RefreshInterval,
	})
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			New,
		),
		fx.Invoke(func(lc fx.Lifecycle, m *Manager) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						m.Run(ctx)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}
