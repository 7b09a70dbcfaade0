package service

import (
	"time"

	"exec_bot/internal/helper"
	"exec_bot/internal/models"

	"github.com/shopspring/decimal"
)

// twapAlgo делит горизонт на slices корзин; в каждой новой корзине выдаёт
// remaining/remaining_buckets вниз до шага лота, последняя корзина добирает
// остаток целиком.
type twapAlgo struct {
	side    models.Side
	target  decimal.Decimal
	horizon time.Duration
	slices  int
	step    decimal.Decimal

	start      time.Time
	started    bool
	lastBucket int
	emitted    decimal.Decimal
}

func newTWAP(p models.Params, step decimal.Decimal) (*twapAlgo, error) {
	side, err := p.Side("side")
	if err != nil {
		return nil, err
	}
	qty, err := p.Decimal("quantity", decimal.Zero)
	if err != nil {
		return nil, err
	}
	horizon, err := p.Duration("window", 0)
	if err != nil {
		return nil, err
	}
	slices, err := p.Int("slices", 10)
	if err != nil {
		return nil, err
	}
	return buildTWAP(side, qty, horizon, slices, step)
}

func buildTWAP(side models.Side, qty decimal.Decimal, horizon time.Duration, slices int, step decimal.Decimal) (*twapAlgo, error) {
	if !qty.IsPositive() {
		return nil, models.NewError(models.KindValidation, "twap: quantity must be positive")
	}
	qty = helper.RoundDownToStep(qty, step)
	if !qty.IsPositive() {
		return nil, models.NewError(models.KindValidation, "twap: quantity is below lot step %s", step)
	}
	if horizon <= 0 {
		return nil, models.NewError(models.KindValidation, "twap: window must be a positive duration")
	}
	if slices < 1 {
		return nil, models.NewError(models.KindValidation, "twap: slices must be >= 1")
	}
	return &twapAlgo{side: side, target: qty, horizon: horizon, slices: slices, step: step, lastBucket: -1}, nil
}

func (t *twapAlgo) done() bool { return t.emitted.GreaterThanOrEqual(t.target) }

func (t *twapAlgo) Emitted() decimal.Decimal { return t.emitted }

func (t *twapAlgo) step(s models.Snapshot) []models.OrderRequest {
	if !t.started {
		t.started = true
		t.start = s.Time
	}
	elapsed := s.Time.Sub(t.start)
	if elapsed < 0 {
		elapsed = 0
	}

	bucket := int(int64(elapsed) * int64(t.slices) / int64(t.horizon))
	last := bucket >= t.slices-1
	if bucket > t.slices-1 {
		bucket = t.slices - 1
	}
	if bucket <= t.lastBucket && !(last && elapsed >= t.horizon) {
		return nil
	}
	t.lastBucket = bucket

	remaining := t.target.Sub(t.emitted)
	qty := remaining
	if !last {
		qty = helper.RoundDownToStep(remaining.Div(decimal.NewFromInt(int64(t.slices-bucket))), t.step)
	}
	if !qty.IsPositive() {
		return nil
	}
	t.emitted = t.emitted.Add(qty)
	return []models.OrderRequest{marketOrder(t.side, qty)}
}
