package service

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"exec_bot/internal/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type ticker24h struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
	OpenPrice string `json:"openPrice"`
	HighPrice string `json:"highPrice"`
	LowPrice  string `json:"lowPrice"`
	Volume    string `json:"volume"`
	CloseTime int64  `json:"closeTime"`
}

func (l *Live) Snapshot(ctx context.Context, symbol string) (models.Snapshot, error) {
	p := url.Values{}
	p.Set("symbol", symbol)
	var t ticker24h
	if err := l.do(ctx, http.MethodGet, "/fapi/v1/ticker/24hr", p, false, &t); err != nil {
		return models.Snapshot{}, err
	}
	s := models.Snapshot{
		Symbol: symbol,
		Time:   l.clock.Now(),
		Price:  parseDec(t.LastPrice),
		Open:   parseDec(t.OpenPrice),
		High:   parseDec(t.HighPrice),
		Low:    parseDec(t.LowPrice),
		Close:  parseDec(t.LastPrice),
		Volume: parseDec(t.Volume),
	}
	if t.CloseTime > 0 {
		s.Time = time.UnixMilli(t.CloseTime)
	}
	return s, nil
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol  string `json:"symbol"`
		Status  string `json:"status"`
		Filters []struct {
			FilterType string `json:"filterType"`
			TickSize   string `json:"tickSize"`
			StepSize   string `json:"stepSize"`
			MinQty     string `json:"minQty"`
			Notional   string `json:"notional"`
		} `json:"filters"`
	} `json:"symbols"`
}

// Instrument отдаёт фильтры символа из кеша, кеш перечитывается раз в filtersTTL.
func (l *Live) Instrument(ctx context.Context, symbol string) (models.Instrument, error) {
	l.filtersMu.RLock()
	inst, ok := l.filters[symbol]
	fresh := l.filtersTTL <= 0 || l.clock.Now().Sub(l.filtersAt) < l.filtersTTL
	l.filtersMu.RUnlock()
	if ok && fresh {
		return inst, nil
	}

	if err := l.loadFilters(ctx); err != nil {
		if ok {
			// биржа недоступна, работаем на старых фильтрах
			return inst, nil
		}
		return models.Instrument{}, err
	}

	l.filtersMu.RLock()
	defer l.filtersMu.RUnlock()
	inst, ok = l.filters[symbol]
	if !ok {
		return models.Instrument{}, models.NewError(models.KindNotFound, "unknown symbol %s", symbol)
	}
	return inst, nil
}

func (l *Live) loadFilters(ctx context.Context) error {
	var info exchangeInfo
	if err := l.do(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", nil, false, &info); err != nil {
		return errors.Wrap(err, "exchange info")
	}

	parsed := make(map[string]models.Instrument, len(info.Symbols))
	for _, s := range info.Symbols {
		inst := models.Instrument{Symbol: s.Symbol}
		for _, f := range s.Filters {
			switch f.FilterType {
			case "PRICE_FILTER":
				inst.TickSize = decOrZero(f.TickSize)
			case "LOT_SIZE":
				inst.StepSize = decOrZero(f.StepSize)
				inst.MinQty = decOrZero(f.MinQty)
			case "MIN_NOTIONAL":
				inst.MinNotional = decOrZero(f.Notional)
			}
		}
		parsed[s.Symbol] = inst
	}

	l.filtersMu.Lock()
	l.filters = parsed
	l.filtersAt = l.clock.Now()
	l.filtersMu.Unlock()
	return nil
}

func decOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
