package service

import (
	"context"

	"exec_bot/internal/helper"
	"exec_bot/internal/models"
	exchange "exec_bot/internal/modules/exchange/service"
	"exec_bot/pkg/clock"
	"exec_bot/pkg/logger"
	"exec_bot/pkg/tracing"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PriceSource: последний известный снапшот по символу (для market notional и позиций).
type PriceSource interface {
	Last(symbol string) (models.Snapshot, bool)
}

type Notifier interface {
	Sendf(format string, args ...any)
}

// Journal: append-only запись изменений ордера, best effort.
type Journal interface {
	Record(ctx context.Context, o models.Order) error
}

// Manager: единственный, кто пишет в Repository. Проверяет, отправляет с ретраями,
// следит за статусами.
type Manager struct {
	adapter   exchange.Adapter
	repo      *Repository
	prices    PriceSource
	validator Validator
	policy    RetryPolicy
	clock     clock.Clock
	notifier  Notifier
	journal   Journal
}

type Options struct {
	Validator Validator
	Policy    RetryPolicy
	Clock     clock.Clock
	Notifier  Notifier
	Journal   Journal
}

func NewManager(adapter exchange.Adapter, repo *Repository, prices PriceSource, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	return &Manager{
		adapter:   adapter,
		repo:      repo,
		prices:    prices,
		validator: opts.Validator,
		policy:    opts.Policy,
		clock:     opts.Clock,
		notifier:  opts.Notifier,
		journal:   opts.Journal,
	}
}

func (m *Manager) Repository() *Repository { return m.repo }

// Submit: валидация без сети, отправка с ретраями, запись в репозиторий.
// При ошибке записи нет.
func (m *Manager) Submit(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	req.Symbol = helper.NormSymbol(req.Symbol)
	span, ctx := tracing.StartSpan(ctx, "order.submit",
		opentracing.Tag{Key: "symbol", Value: req.Symbol},
		opentracing.Tag{Key: "strategy", Value: req.Strategy},
	)
	defer span.Finish()

	o, err := m.prepare(ctx, req)
	if err != nil {
		tracing.Fail(span, err)
		logger.Warn("[ORDER] %s %s %s rejected locally: %v", req.Symbol, req.Side, req.Type, err)
		return models.Order{}, err
	}

	placed, rc, err := m.submitWithRetry(ctx, o)
	if err != nil {
		tracing.Fail(span, err)
		logger.Error("[ORDER] %s %s %s qty=%s failed after %d attempts (%s): %v",
			o.Symbol, o.Side, o.Type, o.Quantity, rc.Attempts, rc.LastKind, err)
		m.notify("❗️ Ордер %s %s %s qty=%s не отправлен: %v", o.Symbol, o.Side, o.Type, o.Quantity, err)
		return models.Order{}, err
	}

	placed = mergePlaced(o, placed)
	if err := m.repo.Insert(placed); err != nil {
		return models.Order{}, errors.Wrap(err, "store order")
	}
	m.record(ctx, placed)

	logger.Info("[ORDER] %s %s %s qty=%s price=%s -> id=%s status=%s attempts=%d",
		placed.Symbol, placed.Side, placed.Type, placed.Quantity, placed.Price, placed.ID, placed.Status, rc.Attempts)
	if placed.ReduceOnly && placed.Strategy != "" {
		m.notify("🛑 %s: закрытие %s %s qty=%s (%s)", placed.Strategy, placed.Symbol, placed.Side, placed.Quantity, placed.Status)
	}
	return placed, nil
}

func (m *Manager) prepare(ctx context.Context, req models.OrderRequest) (models.Order, error) {
	if req.Symbol == "" {
		return models.Order{}, models.NewError(models.KindValidation, "symbol is required")
	}
	inst, err := m.adapter.Instrument(ctx, req.Symbol)
	if err != nil {
		return models.Order{}, errors.Wrapf(err, "instrument %s", req.Symbol)
	}

	last := decimal.Zero
	if m.prices != nil {
		if snap, ok := m.prices.Last(req.Symbol); ok {
			last = decimal.NewFromFloat(snap.Last())
		}
	}
	req, err = m.validator.Validate(req, inst, last)
	if err != nil {
		return models.Order{}, err
	}

	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	} else if _, dup := m.repo.ByClientID(req.ClientOrderID); dup {
		return models.Order{}, models.NewError(models.KindDuplicate, "client order id %s already used", req.ClientOrderID)
	}
	return models.NewOrder(req, m.clock.Now()), nil
}

func (m *Manager) submitWithRetry(ctx context.Context, o models.Order) (models.Order, *RetryContext, error) {
	rc := &RetryContext{}
	for {
		rc.Attempts++
		span, actx := tracing.StartSpan(ctx, "exchange.submit_order",
			opentracing.Tag{Key: "attempt", Value: rc.Attempts})
		placed, err := m.adapter.SubmitOrder(actx, o)
		tracing.Fail(span, err)
		span.Finish()
		if err == nil {
			return placed, rc, nil
		}
		if models.KindOf(err) == models.KindDuplicate {
			// client id уже занят на бирже: прошлая попытка дошла, ответ потерялся
			rc.LastKind = models.KindDuplicate
			if got, ok := m.adopt(ctx, o); ok {
				return got, rc, nil
			}
			return models.Order{}, rc, err
		}

		act, delay := m.policy.next(rc, err, m.clock.Now())
		switch act {
		case actResync:
			logger.Warn("[ORDER] clock drift on %s, resyncing", o.ClientOrderID)
			if serr := m.adapter.SyncTime(ctx); serr != nil {
				return models.Order{}, rc, errors.Wrap(serr, "resync after clock drift")
			}
		case actWait:
			logger.Warn("[ORDER] %s on %s, retry #%d in %s", rc.LastKind, o.ClientOrderID, rc.Attempts, delay)
			if ctx.Err() != nil {
				return models.Order{}, rc, errors.Wrap(ctx.Err(), "submit aborted")
			}
			select {
			case <-ctx.Done():
				return models.Order{}, rc, errors.Wrap(ctx.Err(), "submit aborted")
			case <-m.clock.After(delay):
			}
		default:
			if rc.LastKind == models.KindTransient {
				if got, ok := m.adopt(ctx, o); ok {
					return got, rc, nil
				}
			}
			return models.Order{}, rc, err
		}
	}
}

// adopt ищет на бирже ордер с нашим client id. Найденный считается принятым,
// иначе биржа и репозиторий разойдутся.
func (m *Manager) adopt(ctx context.Context, o models.Order) (models.Order, bool) {
	got, err := m.adapter.QueryByClientID(ctx, o.Symbol, o.ClientOrderID)
	if err != nil {
		logger.Warn("[ORDER] lookup %s by client id: %v", o.ClientOrderID, err)
		return models.Order{}, false
	}
	logger.Warn("[ORDER] %s already on exchange as %s (%s), adopting", o.ClientOrderID, got.ID, got.Status)
	return got, true
}

// mergePlaced дополняет ответ биржи тем, что она не возвращает.
func mergePlaced(sent, placed models.Order) models.Order {
	if placed.ClientOrderID == "" {
		placed.ClientOrderID = sent.ClientOrderID
	}
	if placed.Symbol == "" {
		placed.Symbol = sent.Symbol
	}
	if placed.Status == "" || placed.Status == models.StatusPending {
		placed.Status = models.StatusAccepted
	}
	if placed.PositionSide == "" {
		placed.PositionSide = sent.PositionSide
	}
	placed.Strategy = sent.Strategy
	if placed.CreatedAt.IsZero() {
		placed.CreatedAt = sent.CreatedAt
	}
	if placed.UpdatedAt.IsZero() {
		placed.UpdatedAt = sent.CreatedAt
	}
	return placed
}

// Cancel отменяет ордер на бирже и помечает CANCELLED.
func (m *Manager) Cancel(ctx context.Context, id string) (models.Order, error) {
	o, ok := m.repo.Get(id)
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	if o.Status.Terminal() {
		return o, models.NewError(models.KindRejection, "order %s already %s", id, o.Status)
	}

	span, ctx := tracing.StartSpan(ctx, "order.cancel", opentracing.Tag{Key: "id", Value: id})
	defer span.Finish()
	if err := m.adapter.CancelOrder(ctx, o.Symbol, id); err != nil {
		tracing.Fail(span, err)
		return o, errors.Wrapf(err, "cancel %s", id)
	}

	updated, err := m.repo.Apply(id, models.StatusCancelled, o.FilledQty, o.AvgPrice, m.clock.Now())
	if err != nil {
		return updated, err
	}
	m.record(ctx, updated)
	logger.Info("[ORDER] cancelled %s (%s)", id, o.Symbol)
	return updated, nil
}

func (m *Manager) Get(id string) (models.Order, error) {
	o, ok := m.repo.Get(id)
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	return o, nil
}

func (m *Manager) OpenOrders() []models.Order {
	return m.repo.Open()
}

// Refresh опрашивает биржу по незавершённым ордерам и переносит статусы.
// Возвращает число изменившихся ордеров.
func (m *Manager) Refresh(ctx context.Context) (int, error) {
	changed := 0
	for _, o := range m.repo.Open() {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		got, err := m.adapter.QueryOrder(ctx, o.Symbol, o.ID)
		if err != nil {
			logger.Warn("[ORDER] refresh %s: %v", o.ID, err)
			continue
		}
		if got.Status == o.Status && got.FilledQty.Equal(o.FilledQty) {
			continue
		}
		updated, err := m.repo.Apply(o.ID, got.Status, got.FilledQty, got.AvgPrice, m.clock.Now())
		if err != nil {
			logger.Warn("[ORDER] refresh %s: %v", o.ID, err)
			continue
		}
		changed++
		m.record(ctx, updated)
		logger.Info("[ORDER] %s %s -> %s filled=%s", updated.ID, o.Status, updated.Status, updated.FilledQty)
	}
	return changed, nil
}

// Positions: нетто-позиции из исполнений репозитория, mark по последней цене.
func (m *Manager) Positions() []models.Position {
	return buildPositions(m.repo.All(), func(symbol string) (decimal.Decimal, bool) {
		if m.prices == nil {
			return decimal.Zero, false
		}
		snap, ok := m.prices.Last(symbol)
		if !ok || snap.Last() <= 0 {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(snap.Last()), true
	})
}

func (m *Manager) record(ctx context.Context, o models.Order) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Record(ctx, o); err != nil {
		logger.Warn("[ORDER] journal %s: %v", o.ID, err)
	}
}

func (m *Manager) notify(format string, args ...any) {
	if m.notifier != nil {
		m.notifier.Sendf(format, args...)
	}
}
