package models

import "github.com/shopspring/decimal"

// Instrument: фильтры биржи по символу.
type Instrument struct {
	Symbol      string          `json:"symbol"`
	TickSize    decimal.Decimal `json:"tick_size"`
	StepSize    decimal.Decimal `json:"step_size"`
	MinQty      decimal.Decimal `json:"min_qty"`
	MinNotional decimal.Decimal `json:"min_notional"`
}

type MarginMode string

const (
	MarginCross    MarginMode = "CROSSED"
	MarginIsolated MarginMode = "ISOLATED"
)

type PositionMode string

const (
	PositionModeOneWay PositionMode = "ONE_WAY"
	PositionModeHedge  PositionMode = "HEDGE"
)

// FuturesSettings применяются к символу перед торговлей. Пустые поля не трогаем.
type FuturesSettings struct {
	Symbol       string       `json:"symbol" yaml:"symbol" mapstructure:"symbol"`
	Leverage     int          `json:"leverage" yaml:"leverage" mapstructure:"leverage"`
	MarginMode   MarginMode   `json:"margin_mode" yaml:"margin_mode" mapstructure:"margin_mode"`
	PositionMode PositionMode `json:"position_mode" yaml:"position_mode" mapstructure:"position_mode"`
}

// FuturesResult: итог применения настроек по одному символу.
type FuturesResult struct {
	Symbol string `json:"symbol"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}
