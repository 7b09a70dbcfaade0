package service

import (
	"exec_bot/internal/models"

	"github.com/shopspring/decimal"
)

type trailState string

const (
	trailArmed     trailState = "armed"
	trailTracking  trailState = "tracking"
	trailTriggered trailState = "triggered"
)

var hundred = decimal.NewFromInt(100)

// trailingAlgo: трейлинг-стоп для позиции side. Лонг ведёт максимум,
// шорт: минимум; триггер двигается только в сторону прибыли.
type trailingAlgo struct {
	side       models.Side
	qty        decimal.Decimal
	callback   decimal.Decimal
	absolute   bool
	activation decimal.Decimal

	state   trailState
	extreme decimal.Decimal
	trigger decimal.Decimal
}

func newTrailing(p models.Params) (*trailingAlgo, error) {
	side, err := p.Side("side")
	if err != nil {
		return nil, err
	}
	qty, err := p.Decimal("qty", decimal.Zero)
	if err != nil {
		return nil, err
	}
	callback, err := p.Decimal("callback", decimal.Zero)
	if err != nil {
		return nil, err
	}
	activation, err := p.Decimal("activation", decimal.Zero)
	if err != nil {
		return nil, err
	}
	mode := p.String("callback_mode", "percent")

	if !qty.IsPositive() {
		return nil, models.NewError(models.KindValidation, "trailing: qty must be positive")
	}
	if !callback.IsPositive() {
		return nil, models.NewError(models.KindValidation, "trailing: callback must be positive")
	}
	switch mode {
	case "percent":
		if callback.GreaterThanOrEqual(hundred) {
			return nil, models.NewError(models.KindValidation, "trailing: callback percent must be < 100")
		}
	case "absolute":
	default:
		return nil, models.NewError(models.KindValidation, "trailing: callback_mode must be percent or absolute")
	}

	return &trailingAlgo{
		side:       side,
		qty:        qty,
		callback:   callback,
		absolute:   mode == "absolute",
		activation: activation,
		state:      trailArmed,
	}, nil
}

func (t *trailingAlgo) done() bool { return t.state == trailTriggered }

func (t *trailingAlgo) State() trailState        { return t.state }
func (t *trailingAlgo) Trigger() decimal.Decimal { return t.trigger }

func (t *trailingAlgo) long() bool { return t.side == models.SideBuy }

func (t *trailingAlgo) triggerFor(extreme decimal.Decimal) decimal.Decimal {
	if t.absolute {
		if t.long() {
			return extreme.Sub(t.callback)
		}
		return extreme.Add(t.callback)
	}
	k := t.callback.Div(hundred)
	if t.long() {
		return extreme.Mul(decimal.NewFromInt(1).Sub(k))
	}
	return extreme.Mul(decimal.NewFromInt(1).Add(k))
}

func (t *trailingAlgo) step(s models.Snapshot) []models.OrderRequest {
	last := decimal.NewFromFloat(s.Last())
	if !last.IsPositive() {
		return nil
	}

	if t.state == trailArmed {
		if t.activation.IsPositive() {
			if t.long() && last.LessThan(t.activation) {
				return nil
			}
			if !t.long() && last.GreaterThan(t.activation) {
				return nil
			}
		}
		t.state = trailTracking
		t.extreme = last
		t.trigger = t.triggerFor(last)
	}

	if t.long() {
		if last.GreaterThan(t.extreme) {
			t.extreme = last
			if trig := t.triggerFor(last); trig.GreaterThan(t.trigger) {
				t.trigger = trig
			}
		}
		if last.GreaterThan(t.trigger) {
			return nil
		}
	} else {
		if last.LessThan(t.extreme) {
			t.extreme = last
			if trig := t.triggerFor(last); trig.LessThan(t.trigger) {
				t.trigger = trig
			}
		}
		if last.LessThan(t.trigger) {
			return nil
		}
	}

	t.state = trailTriggered
	o := marketOrder(t.side.Opposite(), t.qty)
	o.ReduceOnly = true
	return []models.OrderRequest{o}
}
