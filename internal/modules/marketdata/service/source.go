package service

import (
	"context"
	"time"

	"exec_bot/internal/helper"
	"exec_bot/internal/models"
	exchange "exec_bot/internal/modules/exchange/service"
	"exec_bot/pkg/clock"

	"github.com/pkg/errors"
)

// stepper: симулятор рынка (exchange mock), двигается на каждый запрос снапшота.
type stepper interface {
	Step(symbol string, base float64)
}

// Source отдаёт снапшот для тика: свежий из стрима, иначе REST через адаптер.
type Source struct {
	adapter      exchange.Adapter
	cache        *Cache
	clock        clock.Clock
	maxStaleness time.Duration
	streaming    bool
	mockBase     float64
}

type SourceOptions struct {
	Clock        clock.Clock
	MaxStaleness time.Duration
	// true: стрим пишет в кеш, REST только если снапшот протух
	Streaming bool
	MockBase  float64
}

func NewSource(adapter exchange.Adapter, cache *Cache, opts SourceOptions) *Source {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	return &Source{
		adapter:      adapter,
		cache:        cache,
		clock:        opts.Clock,
		maxStaleness: opts.MaxStaleness,
		streaming:    opts.Streaming,
		mockBase:     opts.MockBase,
	}
}

func (s *Source) Last(symbol string) (models.Snapshot, bool) {
	return s.cache.Last(helper.NormSymbol(symbol))
}

func (s *Source) Fetch(ctx context.Context, symbol string) (models.Snapshot, error) {
	symbol = helper.NormSymbol(symbol)
	if s.streaming {
		if snap, ok := s.cache.Last(symbol); ok && s.fresh(snap) {
			return snap, nil
		}
	}
	if st, ok := s.adapter.(stepper); ok {
		st.Step(symbol, s.mockBase)
	}

	snap, err := s.adapter.Snapshot(ctx, symbol)
	if err != nil {
		return models.Snapshot{}, errors.Wrapf(err, "snapshot %s", symbol)
	}
	if snap.Symbol == "" {
		snap.Symbol = symbol
	}
	s.cache.Put(snap)
	return snap, nil
}

func (s *Source) fresh(snap models.Snapshot) bool {
	if s.maxStaleness <= 0 {
		return true
	}
	return s.clock.Now().Sub(snap.Time) <= s.maxStaleness
}
