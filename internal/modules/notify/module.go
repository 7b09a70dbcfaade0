package notify

import (
	"context"

	"exec_bot/internal/modules/config"
	"exec_bot/internal/modules/notify/service"
	order "exec_bot/internal/modules/order/service"
	"exec_bot/pkg/logger"

	"go.uber.org/fx"
)

// NewNotifier: Telegram при заданных токене и чате, иначе лог.
// Не поднявшийся бот не валит сервис.
func NewNotifier(cfg *config.Config) service.Notifier {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return service.NewStdout()
	}
	tg, err := service.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		logger.Error("[TG] init failed, fallback to stdout: %v", err)
		return service.NewStdout()
	}
	return tg
}

func asOrderNotifier(n service.Notifier) order.Notifier { return n }

func start(lc fx.Lifecycle, n service.Notifier, orders *order.Manager) {
	if tg, ok := n.(*service.Telegram); ok {
		tg.SetReporter(orders)
	}
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return n.Start(ctx)
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			NewNotifier,
			asOrderNotifier,
		),
		fx.Invoke(start),
	)
}
