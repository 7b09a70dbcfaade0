package exchange

import (
	"exec_bot/internal/modules/config"
	"exec_bot/internal/modules/exchange/service"
	"exec_bot/pkg/clock"
	"exec_bot/pkg/logger"

	"go.uber.org/fx"
)

// NewAdapter выбирает реализацию по exchange.mode.
// dry_run читает рынок с настоящей биржи, ключи для публичных запросов не нужны.
func NewAdapter(cfg *config.Config, clk clock.Clock) service.Adapter {
	var a service.Adapter
	switch cfg.Exchange.Mode {
	case config.ModeLive:
		a = service.NewLive(cfg.Exchange, clk)
	case config.ModeDryRun:
		a = service.NewDryRun(service.NewLive(cfg.Exchange, clk), clk)
	default:
		a = service.NewMock(clk)
	}
	logger.Info("[EXCHANGE] adapter: %s", a.Name())
	return a
}

func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(
			func() clock.Clock { return clock.Real{} },
			NewAdapter,
		),
	)
}
