package service

import (
	"context"
	"sync"

	"exec_bot/internal/models"
	"exec_bot/pkg/db"
	"exec_bot/pkg/logger"

	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_events (
	id              BIGSERIAL PRIMARY KEY,
	order_id        TEXT        NOT NULL,
	client_order_id TEXT        NOT NULL,
	symbol          TEXT        NOT NULL,
	side            TEXT        NOT NULL,
	type            TEXT        NOT NULL,
	quantity        NUMERIC     NOT NULL,
	price           NUMERIC     NOT NULL,
	status          TEXT        NOT NULL,
	filled_qty      NUMERIC     NOT NULL,
	avg_price       NUMERIC     NOT NULL,
	reduce_only     BOOLEAN     NOT NULL,
	strategy        TEXT        NOT NULL,
	recorded_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS order_events_order_id_idx ON order_events (order_id);
`

const insertEvent = `
INSERT INTO order_events (order_id, client_order_id, symbol, side, type, quantity, price,
	status, filled_qty, avg_price, reduce_only, strategy, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// Postgres: append-only журнал изменений ордеров.
type Postgres struct {
	tx db.TxManager
}

func NewPostgres(tx db.TxManager) *Postgres {
	return &Postgres{tx: tx}
}

func (p *Postgres) Migrate(ctx context.Context) error {
	return p.tx.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctx, schema)
		return errors.Wrap(err, "create order_events")
	})
}

func (p *Postgres) Record(ctx context.Context, o models.Order) error {
	at := o.UpdatedAt
	if at.IsZero() {
		at = o.CreatedAt
	}
	// decimal пишем строкой, NUMERIC её примет без потерь
	_, err := p.tx.Conn().Exec(ctx, insertEvent,
		o.ID, o.ClientOrderID, o.Symbol, string(o.Side), string(o.Type),
		o.Quantity.String(), o.Price.String(), string(o.Status),
		o.FilledQty.String(), o.AvgPrice.String(), o.ReduceOnly, o.Strategy, at,
	)
	return errors.Wrapf(err, "journal order %s", o.ID)
}

type Recorder interface {
	Record(ctx context.Context, o models.Order) error
}

// Async снимает запись журнала с пути отправки ордера: Record кладёт в буфер,
// Run пишет в inner. Переполненный буфер теряет события с предупреждением.
type Async struct {
	inner Recorder
	queue chan models.Order

	mu      sync.Mutex
	dropped int
}

func NewAsync(inner Recorder, size int) *Async {
	if size <= 0 {
		size = 1024
	}
	return &Async{inner: inner, queue: make(chan models.Order, size)}
}

func (a *Async) Record(_ context.Context, o models.Order) error {
	select {
	case a.queue <- o:
		return nil
	default:
		a.mu.Lock()
		a.dropped++
		n := a.dropped
		a.mu.Unlock()
		logger.Warn("[JOURNAL] queue full, dropped %s (total %d)", o.ID, n)
		return nil
	}
}

func (a *Async) Dropped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Run пишет до отмены ctx, затем дописывает то, что уже в очереди.
func (a *Async) Run(ctx context.Context) {
	for {
		select {
		case o := <-a.queue:
			a.write(ctx, o)
		case <-ctx.Done():
			a.drain()
			return
		}
	}
}

func (a *Async) drain() {
	ctx := context.Background()
	for {
		select {
		case o := <-a.queue:
			a.write(ctx, o)
		default:
			return
		}
	}
}

func (a *Async) write(ctx context.Context, o models.Order) {
	if err := a.inner.Record(ctx, o); err != nil {
		logger.Warn("[JOURNAL] %v", err)
	}
}

type Noop struct{}

func (Noop) Record(context.Context, models.Order) error { return nil }
