package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"exec_bot/internal/models"
	"exec_bot/internal/modules/api/service"
	"exec_bot/internal/modules/config"
	exchange "exec_bot/internal/modules/exchange/service"
	"exec_bot/internal/modules/health"
	healthsvc "exec_bot/internal/modules/health/service"
	marketdata "exec_bot/internal/modules/marketdata/service"
	order "exec_bot/internal/modules/order/service"
	strategy "exec_bot/internal/modules/strategy/service"
	"exec_bot/pkg/logger"

	"go.uber.org/fx"
)

func NewServer(
	strategies *strategy.Manager,
	factory *strategy.Factory,
	orders *order.Manager,
	src *marketdata.Source,
	adapter exchange.Adapter,
	state *healthsvc.State,
) *service.Server {
	s := service.NewServer(service.Deps{
		Strategies: strategies,
		Builder:    factory,
		Orders:     orders,
		Market:     src,
		Futures: func(ctx context.Context, settings []models.FuturesSettings) []models.FuturesResult {
			return exchange.ApplyFutures(ctx, adapter, settings)
		},
	})
	health.Register(s.Router(), state)
	return s
}

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, s *service.Server) {
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.HTTP.Addr)
			if err != nil {
				return err
			}
			logger.Info("[API] listening on %s", cfg.HTTP.Addr)
			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("[API] serve: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("api",
		fx.Provide(
			NewServer,
		),
		fx.Invoke(RunHTTP),
	)
}
