package service

import (
	"context"
	"time"

	"exec_bot/internal/helper"
	"exec_bot/internal/models"
	"exec_bot/pkg/logger"

	"github.com/shopspring/decimal"
)

const instrumentTimeout = 5 * time.Second

// InstrumentSource: фильтры символа, слайсеры режут объём по шагу лота.
type InstrumentSource interface {
	Instrument(ctx context.Context, symbol string) (models.Instrument, error)
}

// Factory собирает стратегию из конфига (API, пресеты).
type Factory struct {
	lookup      OrderLookup
	instruments InstrumentSource
}

// NewFactory: instruments может быть nil, тогда дети не выравниваются по шагу.
func NewFactory(lookup OrderLookup, instruments InstrumentSource) *Factory {
	return &Factory{lookup: lookup, instruments: instruments}
}

// lotStep: шаг количества для символа. Неизвестный символ это ошибка конфига,
// недоступная биржа нет: выравнивание доделает валидатор ордеров.
func (f *Factory) lotStep(symbol string) (decimal.Decimal, error) {
	if f.instruments == nil {
		return decimal.Zero, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), instrumentTimeout)
	defer cancel()
	inst, err := f.instruments.Instrument(ctx, symbol)
	if err != nil {
		if models.KindOf(err) == models.KindNotFound {
			return decimal.Zero, err
		}
		logger.Warn("[STRAT] %s filters unavailable, slicing without lot step: %v", symbol, err)
		return decimal.Zero, nil
	}
	return inst.StepSize, nil
}

func (f *Factory) Build(cfg models.StrategyConfig) (Strategy, error) {
	symbol := helper.NormSymbol(cfg.Symbol)
	if symbol == "" {
		return nil, models.NewError(models.KindValidation, "symbol is required")
	}
	name := cfg.Name
	if name == "" {
		name = helper.StrategyKey(string(cfg.Type), symbol)
	}

	var (
		a    algo
		err  error
		step decimal.Decimal
	)
	switch cfg.Type {
	case models.StrategyVWAP, models.StrategyTWAP, models.StrategyIceberg, models.StrategyComposite:
		if step, err = f.lotStep(symbol); err != nil {
			return nil, err
		}
	}
	switch cfg.Type {
	case models.StrategyVWAP:
		a, err = newVWAP(cfg.Params, step)
	case models.StrategyTWAP:
		a, err = newTWAP(cfg.Params, step)
	case models.StrategyIceberg:
		a, err = newIceberg(cfg.Params, f.lookup, step)
	case models.StrategyTrailing:
		a, err = newTrailing(cfg.Params)
	case models.StrategyMACrossover, models.StrategyRSI, models.StrategyMACD, models.StrategyMulti:
		a, err = newSignalAlgo(cfg.Type, cfg.Params)
	case models.StrategyComposite:
		a, err = newComposite(cfg.Params, f.lookup, step)
	default:
		return nil, models.NewError(models.KindValidation, "unknown strategy type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	inst := newInstance(name, symbol, cfg.Type, a)
	if cfg.Active != nil {
		inst.SetActive(*cfg.Active)
	}
	return inst, nil
}
