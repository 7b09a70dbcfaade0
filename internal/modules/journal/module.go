package journal

import (
	"context"

	"exec_bot/internal/modules/journal/service"
	order "exec_bot/internal/modules/order/service"
	"exec_bot/pkg/db"

	"go.uber.org/fx"
)

// NewJournal: запись в postgres через очередь; без базы журнал пустой.
func NewJournal(lc fx.Lifecycle, tx *db.PgTxManager) order.Journal {
	if tx == nil {
		return service.Noop{}
	}
	pg := service.NewPostgres(tx)
	async := service.NewAsync(pg, 4096)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if err := pg.Migrate(startCtx); err != nil {
				return err
			}
			go func() {
				defer close(done)
				async.Run(ctx)
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
	return async
}

func Module() fx.Option {
	return fx.Module("journal",
		fx.Provide(
			NewJournal,
		),
	)
}
