package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"exec_bot/internal/models"
	exchange "exec_bot/internal/modules/exchange/service"
	marketdata "exec_bot/internal/modules/marketdata/service"
	order "exec_bot/internal/modules/order/service"
	strategy "exec_bot/internal/modules/strategy/service"
	"exec_bot/pkg/clock"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthSpy struct {
	mu       sync.Mutex
	touched  int
	failures int
}

func (h *healthSpy) TouchTick(time.Time) {
	h.mu.Lock()
	h.touched++
	h.mu.Unlock()
}

func (h *healthSpy) TickFailed() {
	h.mu.Lock()
	h.failures++
	h.mu.Unlock()
}

func TestTickSymbolDrivesTWAPToCompletion(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	mock := exchange.NewMock(clk)
	src := marketdata.NewSource(mock, marketdata.NewCache(), marketdata.SourceOptions{Clock: clk, MockBase: 100})
	repo := order.NewRepository()
	orders := order.NewManager(mock, repo, src, order.Options{Clock: clk})
	strategies := strategy.NewManager()

	twap, err := strategy.NewFactory(repo, nil).Build(models.StrategyConfig{
		Type:   models.StrategyTWAP,
		Symbol: "btcusdt",
		Params: models.Params{"side": "buy", "quantity": "1", "window": "40s", "slices": 4},
	})
	require.NoError(t, err)
	require.NoError(t, strategies.Register(twap))

	h := &healthSpy{}
	m := NewManager(src, strategies, orders, h, Options{})
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		require.NoError(t, m.TickSymbol(ctx, "BTCUSDT"))
		clk.Advance(10 * time.Second)
	}

	all := repo.All()
	require.Len(t, all, 4)
	total := decimal.Zero
	for _, o := range all {
		assert.Equal(t, models.StatusFilled, o.Status)
		assert.Equal(t, "twap:BTCUSDT", o.Strategy)
		total = total.Add(o.FilledQty)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(1)), total.String())
	assert.Equal(t, 6, h.touched)
}

func TestTWAPUnevenSplitFillsExactTarget(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	mock := exchange.NewMock(clk)
	src := marketdata.NewSource(mock, marketdata.NewCache(), marketdata.SourceOptions{Clock: clk, MockBase: 100})
	repo := order.NewRepository()
	orders := order.NewManager(mock, repo, src, order.Options{Clock: clk})
	strategies := strategy.NewManager()

	// шаг лота 0.001 у мока, 1/3 не делится на шаг
	twap, err := strategy.NewFactory(repo, mock).Build(models.StrategyConfig{
		Type:   models.StrategyTWAP,
		Symbol: "BTCUSDT",
		Params: models.Params{"side": "buy", "quantity": "1", "window": "30s", "slices": 3},
	})
	require.NoError(t, err)
	require.NoError(t, strategies.Register(twap))

	m := NewManager(src, strategies, orders, nil, Options{})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, m.TickSymbol(ctx, "BTCUSDT"))
		clk.Advance(10 * time.Second)
	}

	all := repo.All()
	require.Len(t, all, 3)
	total := decimal.Zero
	for _, o := range all {
		assert.Equal(t, models.StatusFilled, o.Status)
		total = total.Add(o.FilledQty)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(1)), total.String())
}

func TestTickSymbolSnapshotFailure(t *testing.T) {
	clk := clock.NewFake(time.Now())
	dry := exchange.NewDryRun(exchange.NewMock(clk), clk)
	src := marketdata.NewSource(dry, marketdata.NewCache(), marketdata.SourceOptions{Clock: clk})
	orders := order.NewManager(dry, order.NewRepository(), src, order.Options{Clock: clk})

	h := &healthSpy{}
	m := NewManager(src, strategy.NewManager(), orders, h, Options{})
	err := m.TickSymbol(context.Background(), "ETHUSDT")
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
	assert.Equal(t, 1, h.failures)
	assert.Zero(t, h.touched)
}

type fakeStrategies struct {
	mu      sync.Mutex
	symbols []string
}

func (f *fakeStrategies) Tick(models.Snapshot) []models.OrderRequest { return nil }
func (f *fakeStrategies) Symbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.symbols...)
}

type noSnapshots struct{}

func (noSnapshots) Fetch(context.Context, string) (models.Snapshot, error) {
	return models.Snapshot{}, errors.New("offline")
}

type noOrders struct{}

func (noOrders) Submit(context.Context, models.OrderRequest) (models.Order, error) {
	return models.Order{}, nil
}
func (noOrders) Refresh(context.Context) (int, error) { return 0, nil }

func TestSyncFollowsStrategySymbols(t *testing.T) {
	strategies := &fakeStrategies{symbols: []string{"ETHUSDT"}}
	m := NewManager(noSnapshots{}, strategies, noOrders{}, nil, Options{
		Symbols:      []string{"btc-usdt"},
		PollInterval: time.Hour,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Sync(ctx)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, m.Running())

	strategies.mu.Lock()
	strategies.symbols = []string{"SOLUSDT"}
	strategies.mu.Unlock()
	m.Sync(ctx)
	// символ из конфига остаётся всегда
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, m.Running())

	m.stopAll()
	assert.Empty(t, m.Running())
	m.wg.Wait()
}

func TestRunStopsOnCancel(t *testing.T) {
	m := NewManager(noSnapshots{}, &fakeStrategies{}, noOrders{}, nil, Options{
		Symbols:         []string{"BTCUSDT"},
		PollInterval:    10 * time.Millisecond,
		RefreshInterval: 10 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(m.Running()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Empty(t, m.Running())
}
