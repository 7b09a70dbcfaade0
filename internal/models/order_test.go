package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseSide(t *testing.T) {
	cases := map[string]Side{"buy": SideBuy, " LONG ": SideBuy, "Sell": SideSell, "short": SideSell}
	for in, want := range cases {
		got, ok := ParseSide(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseSide("hold")
	assert.False(t, ok)
	assert.Equal(t, SideSell, SideBuy.Opposite())
	assert.Equal(t, SideBuy, SideSell.Opposite())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusAccepted))
	assert.True(t, StatusAccepted.CanTransition(StatusPartiallyFilled))
	assert.True(t, StatusPartiallyFilled.CanTransition(StatusPartiallyFilled))
	assert.True(t, StatusPartiallyFilled.CanTransition(StatusFilled))
	assert.True(t, StatusAccepted.CanTransition(StatusCancelled))
	assert.True(t, StatusPending.CanTransition(StatusRejected))

	assert.False(t, StatusPartiallyFilled.CanTransition(StatusAccepted))
	assert.False(t, StatusFilled.CanTransition(StatusFilled))
	assert.False(t, StatusCancelled.CanTransition(StatusFilled))
	assert.False(t, StatusAccepted.CanTransition(OrderStatus("WEIRD")))

	assert.True(t, StatusAccepted.Open())
	assert.False(t, StatusRejected.Open())
	assert.True(t, StatusRejected.Terminal())
}

func TestNewOrderDefaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := NewOrder(OrderRequest{
		Symbol:   "BTCUSDT",
		Side:     SideBuy,
		Type:     OrderTypeLimit,
		Quantity: decimal.RequireFromString("0.5"),
		Price:    decimal.NewFromInt(100),
	}, now)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, GTC, o.TimeInForce)
	assert.Equal(t, PositionBoth, o.PositionSide)
	assert.Equal(t, now, o.CreatedAt)

	m := NewOrder(OrderRequest{Type: OrderTypeMarket}, now)
	assert.Empty(t, m.TimeInForce)
}

func TestRemainingNeverNegative(t *testing.T) {
	o := Order{Quantity: decimal.NewFromInt(1), FilledQty: decimal.RequireFromString("0.4")}
	assert.True(t, o.Remaining().Equal(decimal.RequireFromString("0.6")))
	o.FilledQty = decimal.NewFromInt(2)
	assert.True(t, o.Remaining().IsZero())
}
