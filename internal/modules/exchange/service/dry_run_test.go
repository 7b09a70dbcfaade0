package service

import (
	"context"
	"testing"

	"exec_bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDryRunDoesNotForwardOrders(t *testing.T) {
	ctx := context.Background()
	inner := NewMock(nil)
	inner.SetMarket("BTCUSDT", 100, 0)
	d := NewDryRun(inner, nil)

	o, err := d.SubmitOrder(ctx, newOrder(models.SideBuy, models.OrderTypeMarket, "1", ""))
	require.NoError(t, err)
	assert.Equal(t, "dry-BTCUSDT-1", o.ID)
	assert.Equal(t, models.StatusAccepted, o.Status)
	assert.Equal(t, 0, inner.Submits())

	open, err := d.OpenOrders(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Len(t, open, 1)

	require.NoError(t, d.CancelOrder(ctx, "BTCUSDT", o.ID))
	open, _ = d.OpenOrders(ctx, "")
	assert.Empty(t, open)
}

func TestDryRunValidatesAndReadsThrough(t *testing.T) {
	ctx := context.Background()
	inner := NewMock(nil)
	inner.SetMarket("BTCUSDT", 123, 7)
	d := NewDryRun(inner, nil)

	_, err := d.SubmitOrder(ctx, newOrder(models.SideBuy, models.OrderTypeLimit, "1", "0"))
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	s, err := d.Snapshot(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 123.0, s.Price)
	assert.Equal(t, "dry_run(mock)", d.Name())
}

func TestDryRunChecksInstrumentFilters(t *testing.T) {
	ctx := context.Background()
	inner := NewMock(nil)
	inner.SetMarket("BTCUSDT", 100, 0)
	d := NewDryRun(inner, nil)

	cases := []struct {
		name string
		o    models.Order
	}{
		{"off step", newOrder(models.SideBuy, models.OrderTypeMarket, "0.0015", "")},
		{"off tick", newOrder(models.SideBuy, models.OrderTypeLimit, "1", "100.005")},
		{"min notional market", newOrder(models.SideBuy, models.OrderTypeMarket, "0.01", "")},
		{"min notional limit", newOrder(models.SideSell, models.OrderTypeLimit, "0.04", "100")},
	}
	for _, tc := range cases {
		_, err := d.SubmitOrder(ctx, tc.o)
		assert.Equal(t, models.KindValidation, models.KindOf(err), tc.name)
	}

	closing := newOrder(models.SideSell, models.OrderTypeMarket, "0.01", "")
	closing.ReduceOnly = true
	_, err := d.SubmitOrder(ctx, closing)
	require.NoError(t, err)

	open, _ := d.OpenOrders(ctx, "")
	assert.Len(t, open, 1)
	assert.Equal(t, 0, inner.Submits())
}
