package main

import (
	"context"
	"log"
	"os"

	"exec_bot/internal/helper"
	"exec_bot/internal/models"
	bootstrap "exec_bot/internal/modules/bootstrap/service"
	"exec_bot/internal/modules/config"
	"exec_bot/internal/modules/exchange"
	exchangesvc "exec_bot/internal/modules/exchange/service"
	order "exec_bot/internal/modules/order/service"
	strategy "exec_bot/internal/modules/strategy/service"
	"exec_bot/pkg/logger"

	"go.uber.org/fx"
)

// check собирает пресеты стратегий из strategies_file и сверяет символы с биржей.
// Ордера не отправляются. Код выхода 1, если хоть что-то не собралось.
func main() {
	failed := 0
	app := fx.New(
		fx.NopLogger,
		config.Module(),
		exchange.Module(),
		fx.Invoke(func(cfg *config.Config, adapter exchangesvc.Adapter) error {
			if cfg.StrategiesFile == "" {
				logger.Warn("[CHECK] strategies_file is empty, nothing to check")
				return nil
			}
			presets, err := bootstrap.LoadPresets(cfg.StrategiesFile)
			if err != nil {
				return err
			}
			failed = checkPresets(context.Background(), adapter, presets)
			return nil
		}),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	logger.Sync()
	if failed > 0 {
		os.Exit(1)
	}
}

func checkPresets(ctx context.Context, adapter exchangesvc.Adapter, presets []models.StrategyConfig) int {
	f := strategy.NewFactory(order.NewRepository(), adapter)
	failed := 0
	seen := make(map[string]bool)
	for i, cfg := range presets {
		st, err := f.Build(cfg)
		if err != nil {
			logger.Error("[CHECK] #%d %s %s: %v", i, cfg.Type, cfg.Symbol, err)
			failed++
			continue
		}
		logger.Info("[CHECK] #%d %s ok (%s %s)", i, st.Name(), st.Kind(), st.Symbol())

		symbol := helper.NormSymbol(cfg.Symbol)
		if seen[symbol] {
			continue
		}
		seen[symbol] = true
		inst, err := adapter.Instrument(ctx, symbol)
		if err != nil {
			logger.Error("[CHECK] %s: %v", symbol, err)
			failed++
			continue
		}
		logger.Info("[CHECK] %s tick=%s step=%s min_qty=%s min_notional=%s",
			symbol, inst.TickSize, inst.StepSize, inst.MinQty, inst.MinNotional)
	}
	return failed
}
