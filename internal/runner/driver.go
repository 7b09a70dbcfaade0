package runner

import (
	"context"
	"time"

	"exec_bot/pkg/logger"
)

type driver struct {
	symbol string
	m      *Manager
	quit   chan struct{}
}

func newDriver(symbol string, m *Manager) *driver {
	return &driver{symbol: symbol, m: m, quit: make(chan struct{})}
}

// stop вызывается под m.mu ровно один раз.
func (d *driver) stop() { close(d.quit) }

func (d *driver) run(ctx context.Context) {
	t := time.NewTicker(d.m.opts.PollInterval)
	defer t.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.quit:
			return
		case <-t.C:
			d.tick(ctx)
		}
	}
}

func (d *driver) tick(ctx context.Context) {
	if err := d.m.TickSymbol(ctx, d.symbol); err != nil && ctx.Err() == nil {
		logger.Warn("[RUNNER] %s tick: %v", d.symbol, err)
	}
}
