package config

import (
	"context"

	"exec_bot/pkg/logger"
	"exec_bot/pkg/tracing"

	"go.uber.org/fx"
)

// Module регистрирует конфиг и сразу поднимает логгер под его уровень.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
		),
		fx.Invoke(func(cfg *Config) error {
			logger.SetServiceName(cfg.Service.Name)
			tracing.SetServiceName(cfg.Service.Name)
			return logger.Init(cfg.Log.Level, cfg.Log.Development)
		}),
		fx.Invoke(initTracing),
	)
}

func initTracing(lc fx.Lifecycle, cfg *Config) error {
	_, closer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}
