package order

import (
	"exec_bot/internal/modules/config"
	exchange "exec_bot/internal/modules/exchange/service"
	marketdata "exec_bot/internal/modules/marketdata/service"
	"exec_bot/internal/modules/order/service"
	"exec_bot/pkg/clock"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

type managerParams struct {
	fx.In

	Cfg     *config.Config
	Adapter exchange.Adapter
	Repo    *service.Repository
	Prices  *marketdata.Source
	Clock   clock.Clock
	// опциональные: без них просто не уведомляем и не пишем журнал
	Notifier service.Notifier `optional:"true"`
	Journal  service.Journal  `optional:"true"`
}

func NewOptions(cfg *config.Config) service.Options {
	oc := cfg.Order
	return service.Options{
		Validator: service.Validator{
			MaxQty:      decimal.NewFromFloat(oc.MaxQty),
			MaxNotional: decimal.NewFromFloat(oc.MaxNotional),
		},
		Policy: service.RetryPolicy{
			RateLimitBase:     oc.RateLimitBase,
			RateLimitMax:      oc.RateLimitMax,
			RateLimitAttempts: oc.RateLimitAttempts,
			TransientBase:     oc.TransientBase,
			TransientAttempts: oc.TransientAttempts,
		},
	}
}

func NewManager(p managerParams) *service.Manager {
	opts := NewOptions(p.Cfg)
	opts.Clock = p.Clock
	opts.Notifier = p.Notifier
	opts.Journal = p.Journal
	return service.NewManager(p.Adapter, p.Repo, p.Prices, opts)
}

func Module() fx.Option {
	return fx.Module("order",
		fx.Provide(
			service.NewRepository,
			NewManager,
		),
	)
}
