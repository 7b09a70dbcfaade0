package service

import (
	"context"
	"testing"

	"exec_bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFuturesPerSymbolResults(t *testing.T) {
	m := NewMock(nil)
	res := ApplyFutures(context.Background(), m, []models.FuturesSettings{
		{Symbol: "btc-usdt", Leverage: 10, MarginMode: "cross", PositionMode: "hedge"},
		{Symbol: "ETHUSDT", Leverage: 300},
		{Symbol: "SOLUSDT", MarginMode: "PORTFOLIO"},
		{Symbol: "", Leverage: 5},
	})
	require.Len(t, res, 4)
	assert.Equal(t, models.FuturesResult{Symbol: "BTCUSDT", OK: true}, res[0])
	assert.False(t, res[1].OK)
	assert.Contains(t, res[1].Error, "leverage 300")
	assert.False(t, res[2].OK)
	assert.False(t, res[3].OK)

	applied := m.FuturesApplied()
	require.Len(t, applied, 1)
	assert.Equal(t, models.MarginCross, applied[0].MarginMode)
	assert.Equal(t, models.PositionModeHedge, applied[0].PositionMode)
}
