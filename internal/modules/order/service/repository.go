package service

import (
	"sync"
	"time"

	"exec_bot/internal/models"

	"github.com/shopspring/decimal"
)

// Repository: in-memory хранилище ордеров по id биржи и client id.
// Пишет только Manager, остальные читают.
type Repository struct {
	mu       sync.RWMutex
	byID     map[string]*models.Order
	byClient map[string]string
	ids      []string
}

func NewRepository() *Repository {
	return &Repository{
		byID:     make(map[string]*models.Order),
		byClient: make(map[string]string),
	}
}

func (r *Repository) Insert(o models.Order) error {
	if o.ID == "" {
		return models.NewError(models.KindValidation, "order without exchange id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[o.ID]; ok {
		return models.NewError(models.KindDuplicate, "order %s already stored", o.ID)
	}
	if o.ClientOrderID != "" {
		if _, ok := r.byClient[o.ClientOrderID]; ok {
			return models.NewError(models.KindDuplicate, "client id %s already used", o.ClientOrderID)
		}
		r.byClient[o.ClientOrderID] = o.ID
	}
	stored := o
	r.byID[o.ID] = &stored
	r.ids = append(r.ids, o.ID)
	return nil
}

// Apply переносит статус и исполнение с биржи. Выход из терминального
// статуса и откат назад по жизненному циклу запрещены.
func (r *Repository) Apply(id string, status models.OrderStatus, filled, avg decimal.Decimal, at time.Time) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	if o.Status == status && o.FilledQty.Equal(filled) {
		return *o, nil
	}
	if !o.Status.CanTransition(status) {
		return *o, models.NewError(models.KindRejection, "order %s: %s -> %s not allowed", id, o.Status, status)
	}
	if filled.LessThan(o.FilledQty) {
		return *o, models.NewError(models.KindRejection, "order %s: filled qty can not decrease", id)
	}
	o.Status = status
	o.FilledQty = filled
	if avg.IsPositive() {
		o.AvgPrice = avg
	}
	o.UpdatedAt = at
	return *o, nil
}

// Amend меняет цену или объём; только для ещё не принятого биржей ордера.
func (r *Repository) Amend(id string, qty, price decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.byID[id]
	if !ok {
		return models.ErrOrderNotFound
	}
	if o.Status != models.StatusPending {
		return models.NewError(models.KindRejection, "order %s is %s, amend refused", id, o.Status)
	}
	o.Quantity = qty
	o.Price = price
	return nil
}

func (r *Repository) Get(id string) (models.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.byID[id]
	if !ok {
		return models.Order{}, false
	}
	return *o, true
}

func (r *Repository) ByClientID(clientID string) (models.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byClient[clientID]
	if !ok {
		return models.Order{}, false
	}
	return *r.byID[id], true
}

// Open: незавершённые ордера в порядке создания.
func (r *Repository) Open() []models.Order {
	return r.filter(func(o *models.Order) bool { return o.Status.Open() })
}

func (r *Repository) All() []models.Order {
	return r.filter(func(*models.Order) bool { return true })
}

func (r *Repository) filter(keep func(*models.Order) bool) []models.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Order, 0, len(r.ids))
	for _, id := range r.ids {
		if o := r.byID[id]; keep(o) {
			out = append(out, *o)
		}
	}
	return out
}
