package service

import (
	"sync"
	"sync/atomic"

	"exec_bot/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Strategy: экземпляр алгоритма исполнения на одном символе.
// OnSnapshot вызывается раннером символа; снапшоты чужих символов игнорируются.
type Strategy interface {
	Name() string
	Symbol() string
	Kind() models.StrategyType
	OnSnapshot(s models.Snapshot) []models.OrderRequest
	IsActive() bool
	SetActive(active bool)
}

// algo: собственно логика варианта, без синхронизации и фильтра по символу.
type algo interface {
	step(s models.Snapshot) []models.OrderRequest
	done() bool
}

// OrderLookup: чтение репозитория ордеров (айсбергу нужен статус своего ребёнка).
type OrderLookup interface {
	ByClientID(clientID string) (models.Order, bool)
}

type instance struct {
	name   string
	symbol string
	kind   models.StrategyType
	active atomic.Bool

	mu   sync.Mutex
	algo algo
}

func newInstance(name, symbol string, kind models.StrategyType, a algo) *instance {
	i := &instance{name: name, symbol: symbol, kind: kind, algo: a}
	i.active.Store(true)
	return i
}

func (i *instance) Name() string              { return i.name }
func (i *instance) Symbol() string            { return i.symbol }
func (i *instance) Kind() models.StrategyType { return i.kind }
func (i *instance) IsActive() bool            { return i.active.Load() }
func (i *instance) SetActive(active bool)     { i.active.Store(active) }

// Done: алгоритм исчерпан и больше ничего не выдаст.
func (i *instance) Done() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.algo.done()
}

func (i *instance) OnSnapshot(s models.Snapshot) []models.OrderRequest {
	if !i.IsActive() || s.Symbol != i.symbol {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.algo.done() {
		return nil
	}

	out := i.algo.step(s)
	for k := range out {
		out[k].Symbol = i.symbol
		out[k].Strategy = i.name
		if out[k].ClientOrderID == "" {
			out[k].ClientOrderID = uuid.NewString()
		}
	}
	return out
}

func marketOrder(side models.Side, qty decimal.Decimal) models.OrderRequest {
	return models.OrderRequest{Side: side, Type: models.OrderTypeMarket, Quantity: qty}
}
