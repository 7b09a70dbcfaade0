package service

import (
	"context"

	"exec_bot/internal/models"
	exchange "exec_bot/internal/modules/exchange/service"
	strategy "exec_bot/internal/modules/strategy/service"
	"exec_bot/pkg/logger"
)

type Registry interface {
	Register(s strategy.Strategy) error
}

type Builder interface {
	Build(cfg models.StrategyConfig) (strategy.Strategy, error)
}

type Notifier interface {
	Sendf(format string, args ...any)
}

// Booter готовит сервис к торговле до первого тика раннеров.
type Booter struct {
	adapter  exchange.Adapter
	registry Registry
	builder  Builder
	notifier Notifier
}

func NewBooter(adapter exchange.Adapter, registry Registry, builder Builder, notifier Notifier) *Booter {
	return &Booter{adapter: adapter, registry: registry, builder: builder, notifier: notifier}
}

type Report struct {
	Futures    []models.FuturesResult
	Registered []string
	Failed     map[string]string
}

// Boot не падает на отдельных символах и пресетах: ошибки в отчёте и в логе.
func (b *Booter) Boot(ctx context.Context, futures []models.FuturesSettings, presets []models.StrategyConfig) Report {
	rep := Report{Failed: make(map[string]string)}

	if err := b.adapter.SyncTime(ctx); err != nil {
		logger.Warn("[BOOT] time sync failed: %v", err)
	}

	if len(futures) > 0 {
		rep.Futures = exchange.ApplyFutures(ctx, b.adapter, futures)
	}

	for i, cfg := range presets {
		key := cfg.Name
		if key == "" {
			key = string(cfg.Type) + ":" + cfg.Symbol
		}
		st, err := b.builder.Build(cfg)
		if err == nil {
			err = b.registry.Register(st)
		}
		if err != nil {
			logger.Warn("[BOOT] preset #%d %s: %v", i, key, err)
			rep.Failed[key] = err.Error()
			continue
		}
		rep.Registered = append(rep.Registered, st.Name())
	}

	logger.Info("[BOOT] adapter=%s futures=%d strategies=%d failed=%d",
		b.adapter.Name(), len(rep.Futures), len(rep.Registered), len(rep.Failed))
	if b.notifier != nil {
		b.notifier.Sendf("🚀 exec_bot запущен: %s, стратегий %d, ошибок %d",
			b.adapter.Name(), len(rep.Registered), len(rep.Failed))
	}
	return rep
}
