package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"exec_bot/internal/models"
	"exec_bot/pkg/clock"

	"github.com/shopspring/decimal"
)

var defaultInstrument = models.Instrument{
	TickSize:    decimal.RequireFromString("0.01"),
	StepSize:    decimal.RequireFromString("0.001"),
	MinQty:      decimal.RequireFromString("0.001"),
	MinNotional: decimal.RequireFromString("5"),
}

// Mock: детерминированная биржа для тестов и локального запуска.
// Market исполняется сразу по текущей цене, limit, когда цена его достаёт.
type Mock struct {
	mu    sync.Mutex
	clock clock.Clock

	seq         int64
	prices      map[string]float64
	volumes     map[string]float64
	instruments map[string]models.Instrument
	orders      map[string]*models.Order
	order       []string // id в порядке создания

	steps map[string]int

	failures []error
	// ордер принят, но ответ «потерян»: вызывающий получит эту ошибку
	lost     []error
	submits  int
	syncs    int
	futures  []models.FuturesSettings
}

func NewMock(clk clock.Clock) *Mock {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Mock{
		clock:       clk,
		prices:      make(map[string]float64),
		volumes:     make(map[string]float64),
		instruments: make(map[string]models.Instrument),
		orders:      make(map[string]*models.Order),
		steps:       make(map[string]int),
	}
}

func (m *Mock) Name() string { return "mock" }

// SetMarket задаёт цену и накопленный объём; висящие лимитки проверяются на исполнение.
func (m *Mock) SetMarket(symbol string, price, volume float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
	m.volumes[symbol] = volume
	m.matchLocked(symbol)
}

func (m *Mock) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
	m.matchLocked(symbol)
}

// Step двигает цену символа по синусоиде вокруг стартовой и добавляет объём.
// Используется в режиме mock вместо настоящего рынка.
func (m *Mock) Step(symbol string, base float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.steps[symbol]
	m.steps[symbol] = n + 1
	if base <= 0 {
		base = 100
	}
	px := base * (1 + 0.02*math.Sin(float64(n)/8))
	m.prices[symbol] = math.Round(px*100) / 100
	m.volumes[symbol] += 1 + float64(n%5)
	m.matchLocked(symbol)
}

func (m *Mock) SetInstrument(inst models.Instrument) {
	m.mu.Lock()
	m.instruments[inst.Symbol] = inst
	m.mu.Unlock()
}

// FailNext ставит ошибки в очередь: следующие SubmitOrder вернут их по одной.
func (m *Mock) FailNext(errs ...error) {
	m.mu.Lock()
	m.failures = append(m.failures, errs...)
	m.mu.Unlock()
}

// LoseResponse: следующие принятые ордера вернут err вместо ответа,
// как при таймауте после того, как биржа уже приняла ордер.
func (m *Mock) LoseResponse(errs ...error) {
	m.mu.Lock()
	m.lost = append(m.lost, errs...)
	m.mu.Unlock()
}

func (m *Mock) Submits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submits
}

func (m *Mock) Syncs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncs
}

func (m *Mock) FuturesApplied() []models.FuturesSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.FuturesSettings, len(m.futures))
	copy(out, m.futures)
	return out
}

// Fill: ручное исполнение (частичное или полное) висящего ордера.
func (m *Mock) Fill(id string, qty decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return models.ErrOrderNotFound
	}
	if o.Status.Terminal() {
		return models.NewError(models.KindRejection, "order %s already %s", id, o.Status)
	}
	px := o.Price
	if px.IsZero() {
		px = decimal.NewFromFloat(m.prices[o.Symbol])
	}
	m.applyFillLocked(o, qty, px)
	return nil
}

func (m *Mock) SubmitOrder(_ context.Context, o models.Order) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.submits++
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return models.Order{}, err
	}
	if !o.Quantity.IsPositive() {
		return models.Order{}, models.NewError(models.KindRejection, "quantity must be positive")
	}
	if o.ClientOrderID != "" {
		if _, ok := m.byClientLocked(o.ClientOrderID); ok {
			return models.Order{}, &models.Error{Kind: models.KindDuplicate, Code: codeDupClientID, Msg: "ClientOrderId is duplicated."}
		}
	}

	m.seq++
	o.ID = fmt.Sprintf("mock-%d", m.seq)
	o.Status = models.StatusAccepted
	o.FilledQty = decimal.Zero
	o.AvgPrice = decimal.Zero
	o.CreatedAt = m.clock.Now()
	o.UpdatedAt = o.CreatedAt

	last := decimal.NewFromFloat(m.prices[o.Symbol])
	switch o.Type {
	case models.OrderTypeMarket:
		if last.IsPositive() {
			m.applyFillLocked(&o, o.Quantity, last)
		}
	case models.OrderTypeLimit:
		if marketable(o, last) {
			m.applyFillLocked(&o, o.Quantity, o.Price)
		}
	}

	stored := o
	m.orders[o.ID] = &stored
	m.order = append(m.order, o.ID)
	if len(m.lost) > 0 {
		err := m.lost[0]
		m.lost = m.lost[1:]
		return models.Order{}, err
	}
	return o, nil
}

func (m *Mock) CancelOrder(_ context.Context, _ string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return models.ErrOrderNotFound
	}
	if o.Status.Terminal() {
		return models.NewError(models.KindRejection, "order %s already %s", id, o.Status)
	}
	o.Status = models.StatusCancelled
	o.UpdatedAt = m.clock.Now()
	return nil
}

func (m *Mock) QueryOrder(_ context.Context, _ string, id string) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	return *o, nil
}

func (m *Mock) QueryByClientID(_ context.Context, _ string, clientID string) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byClientLocked(clientID)
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	return o, nil
}

func (m *Mock) byClientLocked(clientID string) (models.Order, bool) {
	for _, id := range m.order {
		if o := m.orders[id]; o.ClientOrderID == clientID {
			return *o, true
		}
	}
	return models.Order{}, false
}

func (m *Mock) OpenOrders(_ context.Context, symbol string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Order, 0)
	for _, id := range m.order {
		o := m.orders[id]
		if !o.Status.Open() {
			continue
		}
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *Mock) Snapshot(_ context.Context, symbol string) (models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	px, ok := m.prices[symbol]
	if !ok {
		return models.Snapshot{}, models.NewError(models.KindNotFound, "no market for %s", symbol)
	}
	return models.Snapshot{
		Symbol: symbol,
		Time:   m.clock.Now(),
		Price:  px,
		Close:  px,
		Volume: m.volumes[symbol],
	}, nil
}

func (m *Mock) Instrument(_ context.Context, symbol string) (models.Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.instruments[symbol]; ok {
		return inst, nil
	}
	inst := defaultInstrument
	inst.Symbol = symbol
	return inst, nil
}

func (m *Mock) ApplyFuturesSettings(_ context.Context, s models.FuturesSettings) error {
	if s.Leverage < 0 || s.Leverage > 125 {
		return models.NewError(models.KindValidation, "leverage %d out of range 1..125", s.Leverage)
	}
	m.mu.Lock()
	m.futures = append(m.futures, s)
	m.mu.Unlock()
	return nil
}

func (m *Mock) SyncTime(context.Context) error {
	m.mu.Lock()
	m.syncs++
	m.mu.Unlock()
	return nil
}

func (m *Mock) matchLocked(symbol string) {
	last := decimal.NewFromFloat(m.prices[symbol])
	ids := make([]string, 0)
	for _, id := range m.order {
		o := m.orders[id]
		if o.Symbol == symbol && o.Status.Open() && o.Type == models.OrderTypeLimit && marketable(*o, last) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		o := m.orders[id]
		m.applyFillLocked(o, o.Remaining(), o.Price)
	}
}

func (m *Mock) applyFillLocked(o *models.Order, qty, px decimal.Decimal) {
	if qty.GreaterThan(o.Remaining()) {
		qty = o.Remaining()
	}
	if !qty.IsPositive() {
		return
	}
	notional := o.AvgPrice.Mul(o.FilledQty).Add(px.Mul(qty))
	o.FilledQty = o.FilledQty.Add(qty)
	o.AvgPrice = notional.Div(o.FilledQty)
	if o.FilledQty.GreaterThanOrEqual(o.Quantity) {
		o.Status = models.StatusFilled
	} else {
		o.Status = models.StatusPartiallyFilled
	}
	o.UpdatedAt = m.clock.Now()
}

func marketable(o models.Order, last decimal.Decimal) bool {
	if !last.IsPositive() {
		return false
	}
	if o.Side == models.SideBuy {
		return o.Price.GreaterThanOrEqual(last)
	}
	return o.Price.LessThanOrEqual(last)
}
