package marketdata

import (
	"context"

	"exec_bot/internal/helper"
	"exec_bot/internal/modules/config"
	exchange "exec_bot/internal/modules/exchange/service"
	health "exec_bot/internal/modules/health/service"
	"exec_bot/internal/modules/marketdata/service"
	"exec_bot/pkg/clock"

	"go.uber.org/fx"
)

func NewSource(cfg *config.Config, adapter exchange.Adapter, cache *service.Cache, clk clock.Clock) *service.Source {
	return service.NewSource(adapter, cache, service.SourceOptions{
		Clock:        clk,
		MaxStaleness: cfg.Market.MaxStaleness,
		Streaming:    streamEnabled(cfg),
		MockBase:     cfg.Market.MockBase,
	})
}

// в mock рынка снаружи нет, стрим не нужен
func streamEnabled(cfg *config.Config) bool {
	return cfg.Market.Stream && cfg.Exchange.Mode != config.ModeMock
}

func runStream(lc fx.Lifecycle, cfg *config.Config, cache *service.Cache, state *health.State, clk clock.Clock) {
	if !streamEnabled(cfg) {
		return
	}
	symbols := make([]string, 0, len(cfg.Market.Symbols))
	for _, s := range cfg.Market.Symbols {
		symbols = append(symbols, helper.NormSymbol(s))
	}
	stream := service.NewStream(cfg.Exchange.WSURL, symbols, cache, state, clk)

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go stream.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			service.NewCache,
			NewSource,
		),
		fx.Invoke(runStream),
	)
}
