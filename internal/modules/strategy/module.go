package strategy

import (
	exchange "exec_bot/internal/modules/exchange/service"
	order "exec_bot/internal/modules/order/service"
	"exec_bot/internal/modules/strategy/service"

	"go.uber.org/fx"
)

// стратегиям нужен только поиск ордера по client id, репозиторий это умеет
func newLookup(repo *order.Repository) service.OrderLookup { return repo }

// фильтры инструментов берём у адаптера биржи
func newInstruments(a exchange.Adapter) service.InstrumentSource { return a }

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			newLookup,
			newInstruments,
			service.NewFactory,
			service.NewManager,
		),
	)
}
