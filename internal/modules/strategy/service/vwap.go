package service

import (
	"exec_bot/internal/helper"
	"exec_bot/internal/models"

	"github.com/shopspring/decimal"
)

// vwapAlgo берёт долю participation от объёма, прошедшего с прошлого тика.
// Лимитная цена, VWAP по последним window снапшотам.
type vwapAlgo struct {
	side          models.Side
	target        decimal.Decimal
	participation float64
	window        int
	step          decimal.Decimal

	executed decimal.Decimal
	lastVol  float64
	seeded   bool

	prices []float64
	vols   []float64
}

func newVWAP(p models.Params, step decimal.Decimal) (*vwapAlgo, error) {
	side, err := p.Side("side")
	if err != nil {
		return nil, err
	}
	qty, err := p.Decimal("quantity", decimal.Zero)
	if err != nil {
		return nil, err
	}
	window, err := p.Int("window", 20)
	if err != nil {
		return nil, err
	}
	part, err := p.Float("participation", 0.1)
	if err != nil {
		return nil, err
	}
	return buildVWAP(side, qty, window, part, step)
}

func buildVWAP(side models.Side, qty decimal.Decimal, window int, part float64, step decimal.Decimal) (*vwapAlgo, error) {
	if !qty.IsPositive() {
		return nil, models.NewError(models.KindValidation, "vwap: quantity must be positive")
	}
	qty = helper.RoundDownToStep(qty, step)
	if !qty.IsPositive() {
		return nil, models.NewError(models.KindValidation, "vwap: quantity is below lot step %s", step)
	}
	if window < 1 {
		return nil, models.NewError(models.KindValidation, "vwap: window must be >= 1")
	}
	if part <= 0 || part > 1 {
		return nil, models.NewError(models.KindValidation, "vwap: participation must be in (0, 1]")
	}
	return &vwapAlgo{side: side, target: qty, participation: part, window: window, step: step}, nil
}

func (v *vwapAlgo) done() bool { return v.executed.GreaterThanOrEqual(v.target) }

// Executed: сколько уже выдано дочерними ордерами.
func (v *vwapAlgo) Executed() decimal.Decimal { return v.executed }

func (v *vwapAlgo) step(s models.Snapshot) []models.OrderRequest {
	last := s.Last()
	if !v.seeded {
		v.seeded = true
		v.lastVol = s.Volume
		v.push(last, 0)
		return nil
	}

	delta := s.Volume - v.lastVol
	v.lastVol = s.Volume
	if delta < 0 {
		// источник сбросил счётчик (новые сутки), считаем от новой базы
		delta = 0
	}
	v.push(last, delta)
	if delta == 0 {
		return nil
	}

	qty := decimal.NewFromFloat(v.participation * delta).Truncate(8)
	if v.step.IsPositive() {
		qty = helper.RoundDownToStep(qty, v.step)
	}
	remaining := v.target.Sub(v.executed)
	if qty.GreaterThan(remaining) {
		qty = remaining
	}
	if !qty.IsPositive() {
		return nil
	}
	v.executed = v.executed.Add(qty)

	return []models.OrderRequest{{
		Side:        v.side,
		Type:        models.OrderTypeLimit,
		Quantity:    qty,
		Price:       decimal.NewFromFloat(v.vwap(last)),
		TimeInForce: models.GTC,
	}}
}

func (v *vwapAlgo) push(price, vol float64) {
	v.prices = append(v.prices, price)
	v.vols = append(v.vols, vol)
	if len(v.prices) > v.window {
		v.prices = v.prices[1:]
		v.vols = v.vols[1:]
	}
}

func (v *vwapAlgo) vwap(fallback float64) float64 {
	var pv, vol float64
	for i := range v.prices {
		pv += v.prices[i] * v.vols[i]
		vol += v.vols[i]
	}
	if vol == 0 {
		return fallback
	}
	return pv / vol
}
