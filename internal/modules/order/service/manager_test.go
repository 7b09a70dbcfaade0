package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"exec_bot/internal/models"
	exchange "exec_bot/internal/modules/exchange/service"
	"exec_bot/pkg/clock"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceMap map[string]float64

func (p priceMap) Last(symbol string) (models.Snapshot, bool) {
	px, ok := p[symbol]
	if !ok {
		return models.Snapshot{}, false
	}
	return models.Snapshot{Symbol: symbol, Price: px}, true
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Sendf(format string, args ...any) {
	r.mu.Lock()
	r.msgs = append(r.msgs, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

type memJournal struct {
	orders []models.Order
}

func (j *memJournal) Record(_ context.Context, o models.Order) error {
	j.orders = append(j.orders, o)
	return nil
}

type env struct {
	m       *Manager
	mock    *exchange.Mock
	clk     *clock.Fake
	prices  priceMap
	notes   *recorder
	journal *memJournal
}

var testPolicy = RetryPolicy{
	RateLimitBase:     100 * time.Millisecond,
	RateLimitMax:      10 * time.Second,
	RateLimitAttempts: 5,
	TransientBase:     50 * time.Millisecond,
	TransientAttempts: 2,
}

func newEnv(t *testing.T, v Validator) *env {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	mock := exchange.NewMock(clk)
	mock.SetMarket("BTCUSDT", 100, 0)
	e := &env{
		mock:    mock,
		clk:     clk,
		prices:  priceMap{"BTCUSDT": 100},
		notes:   &recorder{},
		journal: &memJournal{},
	}
	e.m = NewManager(mock, NewRepository(), e.prices, Options{
		Validator: v,
		Policy:    testPolicy,
		Clock:     clk,
		Notifier:  e.notes,
		Journal:   e.journal,
	})
	return e
}

func market(side models.Side, qty string) models.OrderRequest {
	return models.OrderRequest{
		Symbol:   "BTCUSDT",
		Side:     side,
		Type:     models.OrderTypeMarket,
		Quantity: decimal.RequireFromString(qty),
	}
}

func drift() error {
	return &models.Error{Kind: models.KindClockDrift, Code: -1021, Msg: "timestamp outside recvWindow"}
}

func rateLimited() error {
	return &models.Error{Kind: models.KindRateLimit, Code: 429, Msg: "too many requests"}
}

func TestSubmitStoresAcceptedOrder(t *testing.T) {
	e := newEnv(t, Validator{})
	req := market(models.SideBuy, "0.5")
	req.Strategy = "twap:BTCUSDT"

	o, err := e.m.Submit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "mock-1", o.ID)
	assert.Equal(t, models.StatusFilled, o.Status)
	assert.Equal(t, "twap:BTCUSDT", o.Strategy)
	assert.NotEmpty(t, o.ClientOrderID)

	stored, ok := e.m.Repository().ByClientID(o.ClientOrderID)
	require.True(t, ok)
	assert.Equal(t, o.ID, stored.ID)
	assert.Len(t, e.journal.orders, 1)
}

func TestValidationNeverReachesExchange(t *testing.T) {
	e := newEnv(t, Validator{MaxQty: decimal.NewFromInt(10)})
	ctx := context.Background()

	cases := []models.OrderRequest{
		market(models.SideBuy, "0.0004"), // 0 после округления к шагу
		market(models.SideBuy, "0.01"),   // notional 1 < 5
		market(models.SideBuy, "11"),     // риск-лимит
		{Symbol: "BTCUSDT", Side: models.SideSell, Type: models.OrderTypeLimit, Quantity: decimal.NewFromInt(1)},
		{Symbol: "BTCUSDT", Side: "HOLD", Type: models.OrderTypeMarket, Quantity: decimal.NewFromInt(1)},
	}
	for _, req := range cases {
		_, err := e.m.Submit(ctx, req)
		assert.Equal(t, models.KindValidation, models.KindOf(err), "%+v", req)
	}
	assert.Equal(t, 0, e.mock.Submits())
	assert.Empty(t, e.m.Repository().All())
}

func TestClockDriftResyncsOnce(t *testing.T) {
	e := newEnv(t, Validator{})
	e.mock.FailNext(drift())

	_, err := e.m.Submit(context.Background(), market(models.SideBuy, "1"))
	require.NoError(t, err)
	assert.Equal(t, 1, e.mock.Syncs())
	assert.Equal(t, 2, e.mock.Submits())
	assert.Empty(t, e.clk.Sleeps())
}

func TestSecondDriftIsFatal(t *testing.T) {
	e := newEnv(t, Validator{})
	e.mock.FailNext(drift(), drift())

	_, err := e.m.Submit(context.Background(), market(models.SideBuy, "1"))
	assert.Equal(t, models.KindClockDrift, models.KindOf(err))
	assert.Equal(t, 1, e.mock.Syncs())
	assert.Equal(t, 2, e.mock.Submits())
	assert.Empty(t, e.m.Repository().All())
	assert.Len(t, e.notes.msgs, 1)
}

func TestRateLimitBackoffDoubles(t *testing.T) {
	e := newEnv(t, Validator{})
	e.mock.FailNext(rateLimited(), rateLimited(), rateLimited())

	_, err := e.m.Submit(context.Background(), market(models.SideBuy, "1"))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
	}, e.clk.Sleeps())
	assert.Equal(t, 4, e.mock.Submits())
}

func TestRateLimitAttemptsBounded(t *testing.T) {
	e := newEnv(t, Validator{})
	errs := make([]error, 7)
	for i := range errs {
		errs[i] = rateLimited()
	}
	e.mock.FailNext(errs...)

	_, err := e.m.Submit(context.Background(), market(models.SideBuy, "1"))
	assert.Equal(t, models.KindRateLimit, models.KindOf(err))
	assert.Equal(t, 6, e.mock.Submits())
	assert.Len(t, e.clk.Sleeps(), 5)
}

func TestTransientRetriedThenGivesUp(t *testing.T) {
	e := newEnv(t, Validator{})
	transient := models.NewError(models.KindTransient, "connection reset")
	e.mock.FailNext(transient, transient, transient)

	_, err := e.m.Submit(context.Background(), market(models.SideBuy, "1"))
	assert.Equal(t, models.KindTransient, models.KindOf(err))
	assert.Equal(t, 3, e.mock.Submits())
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 100 * time.Millisecond}, e.clk.Sleeps())
}

func TestRejectionNotRetried(t *testing.T) {
	e := newEnv(t, Validator{})
	e.mock.FailNext(&models.Error{Kind: models.KindRejection, Code: -2010, Msg: "insufficient margin"})

	_, err := e.m.Submit(context.Background(), market(models.SideBuy, "1"))
	assert.Equal(t, models.KindRejection, models.KindOf(err))
	assert.Equal(t, 1, e.mock.Submits())
	assert.Empty(t, e.clk.Sleeps())
}

func TestCancelledContextStopsBackoff(t *testing.T) {
	e := newEnv(t, Validator{})
	e.mock.FailNext(rateLimited())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.m.Submit(ctx, market(models.SideBuy, "1"))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, e.mock.Submits())
}

func TestDuplicateClientID(t *testing.T) {
	e := newEnv(t, Validator{})
	req := market(models.SideBuy, "1")
	req.ClientOrderID = "fixed"

	_, err := e.m.Submit(context.Background(), req)
	require.NoError(t, err)
	_, err = e.m.Submit(context.Background(), req)
	assert.Equal(t, models.KindDuplicate, models.KindOf(err))
	assert.Equal(t, 1, e.mock.Submits())
}

func TestCancelAndRefresh(t *testing.T) {
	e := newEnv(t, Validator{})
	ctx := context.Background()
	limit := func(px string) models.OrderRequest {
		return models.OrderRequest{
			Symbol: "BTCUSDT", Side: models.SideBuy, Type: models.OrderTypeLimit,
			Quantity: decimal.NewFromInt(1), Price: decimal.RequireFromString(px),
		}
	}

	a, err := e.m.Submit(ctx, limit("95"))
	require.NoError(t, err)
	b, err := e.m.Submit(ctx, limit("90"))
	require.NoError(t, err)
	assert.Len(t, e.m.OpenOrders(), 2)

	cancelled, err := e.m.Cancel(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = e.m.Cancel(ctx, b.ID)
	assert.Equal(t, models.KindRejection, models.KindOf(err))
	_, err = e.m.Cancel(ctx, "mock-404")
	assert.ErrorIs(t, err, models.ErrOrderNotFound)

	e.mock.SetPrice("BTCUSDT", 94)
	changed, err := e.m.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	got, err := e.m.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFilled, got.Status)
	assert.Empty(t, e.m.OpenOrders())

	_, err = e.m.Get("nope")
	assert.ErrorIs(t, err, models.ErrOrderNotFound)
}

func TestPositionsFromFills(t *testing.T) {
	e := newEnv(t, Validator{})
	ctx := context.Background()

	_, err := e.m.Submit(ctx, market(models.SideBuy, "2"))
	require.NoError(t, err)
	e.mock.SetPrice("BTCUSDT", 110)
	e.prices["BTCUSDT"] = 110
	_, err = e.m.Submit(ctx, market(models.SideSell, "1"))
	require.NoError(t, err)

	pos := e.m.Positions()
	require.Len(t, pos, 1)
	p := pos[0]
	assert.True(t, p.Quantity.Equal(decimal.NewFromInt(1)))
	assert.True(t, p.EntryPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, p.RealizedPnL.Equal(decimal.NewFromInt(10)))
	assert.True(t, p.UnrealizedPnL.Equal(decimal.NewFromInt(10)))
}

func TestReduceOnlyFromStrategyNotifies(t *testing.T) {
	e := newEnv(t, Validator{})
	req := market(models.SideSell, "0.01")
	req.ReduceOnly = true
	req.Strategy = "trailing:BTCUSDT"

	_, err := e.m.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, e.notes.msgs, 1)
}

func TestLostResponseOrderIsAdopted(t *testing.T) {
	e := newEnv(t, Validator{})
	e.mock.LoseResponse(models.NewError(models.KindTransient, "context deadline exceeded"))

	o, err := e.m.Submit(context.Background(), market(models.SideBuy, "1"))
	require.NoError(t, err)

	// повтор с тем же client id получил «дубликат», ордер взят с биржи
	assert.Equal(t, 2, e.mock.Submits())
	assert.Equal(t, "mock-1", o.ID)
	assert.Equal(t, models.StatusFilled, o.Status)

	stored, ok := e.m.Repository().ByClientID(o.ClientOrderID)
	require.True(t, ok)
	assert.Equal(t, "mock-1", stored.ID)

	open, err := e.mock.OpenOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestTransientGiveUpChecksExchange(t *testing.T) {
	e := newEnv(t, Validator{})
	transient := models.NewError(models.KindTransient, "connection reset")
	e.mock.FailNext(transient, transient)
	e.mock.LoseResponse(transient)

	o, err := e.m.Submit(context.Background(), market(models.SideBuy, "1"))
	require.NoError(t, err)
	assert.Equal(t, 3, e.mock.Submits())
	assert.Equal(t, "mock-1", o.ID)
	assert.Len(t, e.m.OpenOrders(), 0)
	assert.Len(t, e.m.Repository().All(), 1)
}

func TestDuplicateWithoutExchangeOrderFails(t *testing.T) {
	e := newEnv(t, Validator{})
	e.mock.FailNext(&models.Error{Kind: models.KindDuplicate, Code: -4116, Msg: "ClientOrderId is duplicated."})

	_, err := e.m.Submit(context.Background(), market(models.SideBuy, "1"))
	assert.Equal(t, models.KindDuplicate, models.KindOf(err))
	assert.Equal(t, 1, e.mock.Submits())
	assert.Empty(t, e.m.Repository().All())
}
