package helper

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRoundToTick(t *testing.T) {
	tests := []struct {
		name string
		px   string
		tick string
		down string
		up   string
	}{
		{"exact", "100.50", "0.10", "100.5", "100.5"},
		{"between", "100.57", "0.10", "100.5", "100.6"},
		{"fine tick", "0.123456", "0.0001", "0.1234", "0.1235"},
		{"zero tick", "1.2345", "0", "1.2345", "1.2345"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, RoundDownToTick(d(tt.px), d(tt.tick)).Equal(d(tt.down)))
			assert.True(t, RoundUpToTick(d(tt.px), d(tt.tick)).Equal(d(tt.up)))
		})
	}
}

func TestRoundDownToStepNeverExceeds(t *testing.T) {
	got := RoundDownToStep(d("0.0199"), d("0.001"))
	assert.Equal(t, "0.019", got.String())
}

func TestNormSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", NormSymbol(" btc-usdt "))
	assert.Equal(t, "ETHUSDT", NormSymbol("ETH/USDT"))
	assert.Equal(t, "SOLUSDT", NormSymbol("sol_usdt"))
}

func TestStrategyKey(t *testing.T) {
	assert.Equal(t, "twap:BTCUSDT", StrategyKey("twap", "BTCUSDT"))
}
