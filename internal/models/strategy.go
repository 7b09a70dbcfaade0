package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type StrategyType string

const (
	StrategyVWAP        StrategyType = "vwap"
	StrategyTWAP        StrategyType = "twap"
	StrategyIceberg     StrategyType = "iceberg"
	StrategyTrailing    StrategyType = "trailing"
	StrategyMACrossover StrategyType = "ma_crossover"
	StrategyRSI         StrategyType = "rsi"
	StrategyMACD        StrategyType = "macd"
	StrategyMulti       StrategyType = "multi_indicator"
	StrategyComposite   StrategyType = "composite"
)

// StrategyConfig: запрос на создание стратегии (API или пресеты из yaml).
type StrategyConfig struct {
	Name   string       `json:"name" yaml:"name"`
	Type   StrategyType `json:"type" yaml:"type"`
	Symbol string       `json:"symbol" yaml:"symbol"`
	Params Params       `json:"params" yaml:"params"`
	Active *bool        `json:"active,omitempty" yaml:"active,omitempty"`
}

// StrategyInfo: строка для списка в API.
type StrategyInfo struct {
	Name   string       `json:"name"`
	Type   StrategyType `json:"type"`
	Symbol string       `json:"symbol"`
	Active bool         `json:"active"`
}

// Params: параметры варианта. Значения приходят из json (float64) или yaml (int, string, map).
type Params map[string]any

func (p Params) raw(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (p Params) Has(key string) bool {
	_, ok := p.raw(key)
	return ok
}

func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p.raw(key)
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, NewError(KindValidation, "param %s: %q is not a number", key, x)
		}
		return f, nil
	case fmt.Stringer: // json.Number, decimal.Decimal
		f, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return 0, NewError(KindValidation, "param %s: %q is not a number", key, x.String())
		}
		return f, nil
	default:
		return 0, NewError(KindValidation, "param %s: unsupported value %v", key, v)
	}
}

func (p Params) Int(key string, def int) (int, error) {
	f, err := p.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func (p Params) String(key, def string) string {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Decimal без потерь для строк ("0.001") и через float для чисел.
func (p Params) Decimal(key string, def decimal.Decimal) (decimal.Decimal, error) {
	v, ok := p.raw(key)
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero, NewError(KindValidation, "param %s: %q is not a decimal", key, x)
		}
		return d, nil
	case decimal.Decimal:
		return x, nil
	default:
		f, err := p.Float(key, 0)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromFloat(f), nil
	}
}

// Duration: строка "30m" или число секунд.
func (p Params) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := p.raw(key)
	if !ok {
		return def, nil
	}
	if s, isStr := v.(string); isStr {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, nil
		}
	}
	f, err := p.Float(key, 0)
	if err != nil {
		return 0, NewError(KindValidation, "param %s: bad duration %v", key, v)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func (p Params) Side(key string) (Side, error) {
	s, ok := ParseSide(p.String(key, ""))
	if !ok {
		return "", NewError(KindValidation, "param %s: side must be buy or sell", key)
	}
	return s, nil
}

// Sub: вложенные параметры (composite.signal / composite.exec).
func (p Params) Sub(key string) Params {
	v, ok := p.raw(key)
	if !ok {
		return nil
	}
	switch m := v.(type) {
	case Params:
		return m
	case map[string]any:
		return Params(m)
	case map[any]any: // yaml.v2
		return fromYAML(m)
	default:
		return nil
	}
}

func fromYAML(m map[any]any) Params {
	out := make(Params, len(m))
	for k, v := range m {
		if inner, ok := v.(map[any]any); ok {
			v = fromYAML(inner)
		}
		out[fmt.Sprint(k)] = v
	}
	return out
}
