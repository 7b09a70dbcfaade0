package service

import (
	"context"
	"fmt"
	"sync"

	"exec_bot/internal/models"
	"exec_bot/pkg/clock"
	"exec_bot/pkg/logger"

	"github.com/shopspring/decimal"
)

// DryRun читает рынок через inner, а приказы только проверяет и пишет в лог.
// Принятые ордера висят в ACCEPTED, пока их не отменят.
type DryRun struct {
	inner Adapter
	clock clock.Clock

	mu     sync.Mutex
	seq    map[string]int
	orders map[string]models.Order
	ids    []string
}

func NewDryRun(inner Adapter, clk clock.Clock) *DryRun {
	if clk == nil {
		clk = clock.Real{}
	}
	return &DryRun{
		inner:  inner,
		clock:  clk,
		seq:    make(map[string]int),
		orders: make(map[string]models.Order),
	}
}

func (d *DryRun) Name() string { return "dry_run(" + d.inner.Name() + ")" }

func (d *DryRun) SubmitOrder(ctx context.Context, o models.Order) (models.Order, error) {
	if !o.Quantity.IsPositive() {
		return models.Order{}, models.NewError(models.KindValidation, "quantity must be positive")
	}
	if o.Type.NeedsPrice() && !o.Price.IsPositive() {
		return models.Order{}, models.NewError(models.KindValidation, "%s order requires price", o.Type)
	}
	if err := d.checkFilters(ctx, o); err != nil {
		logger.Warn("[DRY] %s %s %s qty=%s price=%s would be rejected: %v",
			o.Symbol, o.Side, o.Type, o.Quantity, o.Price, err)
		return models.Order{}, err
	}

	d.mu.Lock()
	d.seq[o.Symbol]++
	o.ID = fmt.Sprintf("dry-%s-%d", o.Symbol, d.seq[o.Symbol])
	o.Status = models.StatusAccepted
	o.UpdatedAt = d.clock.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = o.UpdatedAt
	}
	d.orders[o.ID] = o
	d.ids = append(d.ids, o.ID)
	d.mu.Unlock()

	logger.Info("[DRY] %s %s %s qty=%s price=%s reduce_only=%v -> %s",
		o.Symbol, o.Side, o.Type, o.Quantity, o.Price, o.ReduceOnly, o.ID)
	return o, nil
}

// checkFilters проверяет ордер по фильтрам инструмента так же, как биржа:
// кратность шагу и тику, минимальный объём и минимальный notional.
func (d *DryRun) checkFilters(ctx context.Context, o models.Order) error {
	inst, err := d.inner.Instrument(ctx, o.Symbol)
	if err != nil {
		return err
	}
	if inst.StepSize.IsPositive() && !o.Quantity.Mod(inst.StepSize).IsZero() {
		return models.NewError(models.KindValidation, "quantity %s is not a multiple of step %s", o.Quantity, inst.StepSize)
	}
	if inst.MinQty.IsPositive() && o.Quantity.LessThan(inst.MinQty) {
		return models.NewError(models.KindValidation, "quantity %s below min %s", o.Quantity, inst.MinQty)
	}
	if o.Type.NeedsPrice() && inst.TickSize.IsPositive() && !o.Price.Mod(inst.TickSize).IsZero() {
		return models.NewError(models.KindValidation, "price %s is not a multiple of tick %s", o.Price, inst.TickSize)
	}
	if o.ReduceOnly || !inst.MinNotional.IsPositive() {
		return nil
	}

	ref := o.Price
	if !o.Type.NeedsPrice() {
		snap, err := d.inner.Snapshot(ctx, o.Symbol)
		if err != nil {
			// без цены notional не оценить, остальные фильтры пройдены
			return nil
		}
		ref = decimal.NewFromFloat(snap.Last())
	}
	if ref.IsPositive() && o.Quantity.Mul(ref).LessThan(inst.MinNotional) {
		return models.NewError(models.KindValidation, "notional %s below min %s", o.Quantity.Mul(ref), inst.MinNotional)
	}
	return nil
}

func (d *DryRun) CancelOrder(_ context.Context, _ string, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.orders[id]
	if !ok {
		return models.ErrOrderNotFound
	}
	if o.Status.Terminal() {
		return models.NewError(models.KindRejection, "order %s already %s", id, o.Status)
	}
	o.Status = models.StatusCancelled
	o.UpdatedAt = d.clock.Now()
	d.orders[id] = o
	logger.Info("[DRY] cancel %s", id)
	return nil
}

func (d *DryRun) QueryOrder(_ context.Context, _ string, id string) (models.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, ok := d.orders[id]
	if !ok {
		return models.Order{}, models.ErrOrderNotFound
	}
	return o, nil
}

func (d *DryRun) QueryByClientID(_ context.Context, _ string, clientID string) (models.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range d.ids {
		if o := d.orders[id]; o.ClientOrderID == clientID {
			return o, nil
		}
	}
	return models.Order{}, models.ErrOrderNotFound
}

func (d *DryRun) OpenOrders(_ context.Context, symbol string) ([]models.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Order, 0)
	for _, id := range d.ids {
		o := d.orders[id]
		if o.Status.Open() && (symbol == "" || o.Symbol == symbol) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (d *DryRun) Snapshot(ctx context.Context, symbol string) (models.Snapshot, error) {
	return d.inner.Snapshot(ctx, symbol)
}

func (d *DryRun) Instrument(ctx context.Context, symbol string) (models.Instrument, error) {
	return d.inner.Instrument(ctx, symbol)
}

func (d *DryRun) ApplyFuturesSettings(_ context.Context, s models.FuturesSettings) error {
	logger.Info("[DRY] futures settings %s lev=%d margin=%s mode=%s", s.Symbol, s.Leverage, s.MarginMode, s.PositionMode)
	return nil
}

func (d *DryRun) SyncTime(ctx context.Context) error {
	return d.inner.SyncTime(ctx)
}
