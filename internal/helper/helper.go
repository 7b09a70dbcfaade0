package helper

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormSymbol: "btc-usdt" / "BTC/USDT" / "btcusdt" -> "BTCUSDT".
func NormSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

func RoundDownToTick(px, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return px
	}
	return px.Div(tick).Floor().Mul(tick)
}

func RoundUpToTick(px, tick decimal.Decimal) decimal.Decimal {
	if !tick.IsPositive() {
		return px
	}
	return px.Div(tick).Ceil().Mul(tick)
}

// RoundDownToStep: количество всегда вниз, чтобы не превысить цель.
func RoundDownToStep(qty, step decimal.Decimal) decimal.Decimal {
	return RoundDownToTick(qty, step)
}

// StrategyKey: имя стратегии по умолчанию: "twap:BTCUSDT".
func StrategyKey(kind, symbol string) string { return kind + ":" + symbol }
