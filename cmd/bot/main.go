package main

import (
	"context"
	"log"
	"time"

	"exec_bot/internal/modules/api"
	"exec_bot/internal/modules/bootstrap"
	"exec_bot/internal/modules/config"
	"exec_bot/internal/modules/exchange"
	"exec_bot/internal/modules/health"
	"exec_bot/internal/modules/journal"
	"exec_bot/internal/modules/marketdata"
	"exec_bot/internal/modules/notify"
	"exec_bot/internal/modules/order"
	"exec_bot/internal/modules/postgres"
	"exec_bot/internal/modules/strategy"
	"exec_bot/internal/runner"

	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		exchange.Module(),
		health.Module(),
		marketdata.Module(),
		postgres.Module(),
		journal.Module(),
		order.Module(),
		notify.Module(),
		strategy.Module(),
		bootstrap.Module(),
		runner.Module(),
		api.Module(),
	)
	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}

	<-app.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
}
