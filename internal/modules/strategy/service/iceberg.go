package service

import (
	"exec_bot/internal/helper"
	"exec_bot/internal/models"
	"exec_bot/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// icebergAlgo показывает рынку не больше visible за раз: один висящий ребёнок,
// следующий выставляется только после его исполнения.
type icebergAlgo struct {
	side    models.Side
	total   decimal.Decimal
	visible decimal.Decimal
	price   decimal.Decimal
	lookup  OrderLookup

	filled     decimal.Decimal
	pendingID  string
	pendingQty decimal.Decimal
	// недоисполненный остаток снятого ребёнка, уйдёт следующим
	carry decimal.Decimal
	// детей подряд, которые не дошли до биржи или отклонены без исполнения
	failures int
	stopped  bool
}

// после стольких неудачных детей подряд айсберг останавливается
const maxIcebergFailures = 3

func newIceberg(p models.Params, lookup OrderLookup, step decimal.Decimal) (*icebergAlgo, error) {
	side, err := p.Side("side")
	if err != nil {
		return nil, err
	}
	total, err := p.Decimal("total_qty", decimal.Zero)
	if err != nil {
		return nil, err
	}
	visible, err := p.Decimal("visible_qty", decimal.Zero)
	if err != nil {
		return nil, err
	}
	price, err := p.Decimal("price", decimal.Zero)
	if err != nil {
		return nil, err
	}
	// видимая часть и итог по шагу лота, иначе валидатор срежет каждый ребёнок
	return buildIceberg(side, helper.RoundDownToStep(total, step), helper.RoundDownToStep(visible, step), price, lookup)
}

func buildIceberg(side models.Side, total, visible, price decimal.Decimal, lookup OrderLookup) (*icebergAlgo, error) {
	if !total.IsPositive() || !visible.IsPositive() {
		return nil, models.NewError(models.KindValidation, "iceberg: total_qty and visible_qty must be positive")
	}
	if visible.GreaterThan(total) {
		return nil, models.NewError(models.KindValidation, "iceberg: visible_qty exceeds total_qty")
	}
	if !price.IsPositive() {
		return nil, models.NewError(models.KindValidation, "iceberg: price must be positive")
	}
	return &icebergAlgo{side: side, total: total, visible: visible, price: price, lookup: lookup}, nil
}

func (a *icebergAlgo) done() bool {
	if a.stopped {
		return true
	}
	return a.pendingID == "" && a.filled.GreaterThanOrEqual(a.total)
}

// Outstanding: client id висящего ребёнка или "".
func (a *icebergAlgo) Outstanding() string { return a.pendingID }

func (a *icebergAlgo) Filled() decimal.Decimal { return a.filled }

func (a *icebergAlgo) step(s models.Snapshot) []models.OrderRequest {
	if a.stopped {
		return nil
	}
	if a.pendingID != "" && !a.settle() {
		return nil
	}
	if a.failures >= maxIcebergFailures {
		a.stopped = true
		logger.Error("[STRAT] iceberg %s %s: %d children failed in a row, stopping at %s/%s",
			a.side, a.pendingQty, a.failures, a.filled, a.total)
		return nil
	}
	if a.filled.GreaterThanOrEqual(a.total) {
		return nil
	}

	last := decimal.NewFromFloat(s.Last())
	if a.side == models.SideBuy && last.GreaterThan(a.price) {
		return nil
	}
	if a.side == models.SideSell && last.LessThan(a.price) {
		return nil
	}

	qty := a.carry
	if !qty.IsPositive() {
		qty = decimal.Min(a.visible, a.total.Sub(a.filled))
	}
	a.carry = decimal.Zero
	a.pendingID = uuid.NewString()
	a.pendingQty = qty

	return []models.OrderRequest{{
		ClientOrderID: a.pendingID,
		Side:          a.side,
		Type:          models.OrderTypeLimit,
		Quantity:      qty,
		Price:         a.price,
		TimeInForce:   models.GTC,
	}}
}

// settle смотрит статус висящего ребёнка; true: можно выставлять следующий.
func (a *icebergAlgo) settle() bool {
	if a.lookup == nil {
		// без репозитория считаем ребёнка исполненным
		a.filled = a.filled.Add(a.pendingQty)
		a.pendingID = ""
		return true
	}

	o, ok := a.lookup.ByClientID(a.pendingID)
	if !ok {
		// отправка не удалась, ордера нет, повторяем тот же объём
		a.failures++
		a.carry = a.pendingQty
		a.pendingID = ""
		return true
	}

	switch o.Status {
	case models.StatusFilled:
		a.failures = 0
		a.filled = a.filled.Add(o.FilledQty)
		a.pendingID = ""
		return true
	case models.StatusCancelled, models.StatusRejected:
		if o.Status == models.StatusRejected && !o.FilledQty.IsPositive() {
			a.failures++
		} else {
			a.failures = 0
		}
		a.filled = a.filled.Add(o.FilledQty)
		a.carry = a.pendingQty.Sub(o.FilledQty)
		a.pendingID = ""
		return true
	default:
		a.failures = 0
		return false
	}
}
