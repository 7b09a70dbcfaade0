package runner

import (
	"context"
	"sort"
	"sync"
	"time"

	"exec_bot/internal/helper"
	"exec_bot/internal/models"
	"exec_bot/pkg/logger"
)

type Snapshots interface {
	Fetch(ctx context.Context, symbol string) (models.Snapshot, error)
}

type Strategies interface {
	Tick(snap models.Snapshot) []models.OrderRequest
	Symbols() []string
}

type Orders interface {
	Submit(ctx context.Context, req models.OrderRequest) (models.Order, error)
	Refresh(ctx context.Context) (int, error)
}

type Health interface {
	TouchTick(t time.Time)
	TickFailed()
}

type Options struct {
	// символы из конфига, их драйверы живут всегда
	Symbols         []string
	PollInterval    time.Duration
	RefreshInterval time.Duration
}

// Manager держит по драйверу на символ: свой символ по своему таймеру.
// Набор символов сверяется со стратегиями каждые PollInterval.
type Manager struct {
	snapshots  Snapshots
	strategies Strategies
	orders     Orders
	health     Health
	opts       Options

	mu      sync.Mutex
	drivers map[string]*driver
	wg      sync.WaitGroup
}

func NewManager(snapshots Snapshots, strategies Strategies, orders Orders, health Health, opts Options) *Manager {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	static := make([]string, 0, len(opts.Symbols))
	for _, s := range opts.Symbols {
		if s = helper.NormSymbol(s); s != "" {
			static = append(static, s)
		}
	}
	opts.Symbols = static
	return &Manager{
		snapshots:  snapshots,
		strategies: strategies,
		orders:     orders,
		health:     health,
		opts:       opts,
		drivers:    make(map[string]*driver),
	}
}

// Run блокируется до отмены ctx, потом гасит все драйверы и ждёт их.
func (m *Manager) Run(ctx context.Context) {
	logger.Info("[RUNNER] started, poll=%s refresh=%s", m.opts.PollInterval, m.opts.RefreshInterval)
	m.Sync(ctx)

	if m.opts.RefreshInterval > 0 {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.refreshLoop(ctx)
		}()
	}

	t := time.NewTicker(m.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.stopAll()
			m.wg.Wait()
			logger.Info("[RUNNER] stopped")
			return
		case <-t.C:
			m.Sync(ctx)
		}
	}
}

// Sync запускает драйверы для новых символов и останавливает лишние.
func (m *Manager) Sync(ctx context.Context) {
	want := make(map[string]struct{})
	for _, s := range m.opts.Symbols {
		want[s] = struct{}{}
	}
	for _, s := range m.strategies.Symbols() {
		want[s] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for sym := range want {
		if _, running := m.drivers[sym]; running {
			continue
		}
		d := newDriver(sym, m)
		m.drivers[sym] = d
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			d.run(ctx)
		}()
		logger.Info("[RUNNER] ▶️ %s", sym)
	}
	for sym, d := range m.drivers {
		if _, ok := want[sym]; !ok {
			d.stop()
			delete(m.drivers, sym)
			logger.Info("[RUNNER] ⏹ %s", sym)
		}
	}
}

func (m *Manager) stopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sym, d := range m.drivers {
		d.stop()
		delete(m.drivers, sym)
	}
}

// Running: символы с живым драйвером.
func (m *Manager) Running() []string {
	m.mu.Lock()
	out := make([]string, 0, len(m.drivers))
	for sym := range m.drivers {
		out = append(out, sym)
	}
	m.mu.Unlock()
	sort.Strings(out)
	return out
}

// TickSymbol: один цикл: снапшот, стратегии, отправка их ордеров по порядку.
// Ошибки отдельных ордеров только логируются, цикл продолжается.
func (m *Manager) TickSymbol(ctx context.Context, symbol string) error {
	snap, err := m.snapshots.Fetch(ctx, symbol)
	if err != nil {
		if m.health != nil {
			m.health.TickFailed()
		}
		return err
	}

	for _, req := range m.strategies.Tick(snap) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := m.orders.Submit(ctx, req); err != nil {
			logger.Warn("[RUNNER] %s: order from %s failed: %v", symbol, req.Strategy, err)
		}
	}
	if m.health != nil {
		m.health.TouchTick(snap.Time)
	}
	return nil
}

func (m *Manager) refreshLoop(ctx context.Context) {
	t := time.NewTicker(m.opts.RefreshInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := m.orders.Refresh(ctx)
			if err != nil && ctx.Err() == nil {
				logger.Warn("[RUNNER] refresh: %v", err)
			}
			if n > 0 {
				logger.Debug("[RUNNER] refresh: %d orders changed", n)
			}
		}
	}
}
