package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"exec_bot/internal/models"
	"exec_bot/pkg/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeConn struct {
	mu    sync.Mutex
	calls []execCall
	err   error
}

func (c *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, c.err
}

func (c *fakeConn) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (c *fakeConn) QueryRow(context.Context, string, ...interface{}) pgx.Row { return nil }

type fakeTx struct{ conn *fakeConn }

func (f fakeTx) RunMaster(ctx context.Context, fn func(context.Context, db.Transaction) error) error {
	return fn(ctx, f.conn)
}

func (f fakeTx) Conn() db.Transaction { return f.conn }

func sampleOrder() models.Order {
	at := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)
	return models.Order{
		ID: "mock-7", ClientOrderID: "cid", Symbol: "BTCUSDT",
		Side: models.SideSell, Type: models.OrderTypeMarket,
		Quantity: decimal.RequireFromString("0.25"), FilledQty: decimal.RequireFromString("0.25"),
		AvgPrice: decimal.RequireFromString("64000.5"), Status: models.StatusFilled,
		ReduceOnly: true, Strategy: "trailing:BTCUSDT", CreatedAt: at,
	}
}

func TestPostgresRecordArgs(t *testing.T) {
	conn := &fakeConn{}
	p := NewPostgres(fakeTx{conn: conn})

	require.NoError(t, p.Migrate(context.Background()))
	require.NoError(t, p.Record(context.Background(), sampleOrder()))

	require.Len(t, conn.calls, 2)
	assert.Contains(t, conn.calls[0].sql, "CREATE TABLE IF NOT EXISTS order_events")
	args := conn.calls[1].args
	require.Len(t, args, 13)
	assert.Equal(t, "mock-7", args[0])
	assert.Equal(t, "0.25", args[5])
	assert.Equal(t, "FILLED", args[7])
	assert.Equal(t, "64000.5", args[9])
	assert.Equal(t, true, args[10])
	// UpdatedAt пустой, берём CreatedAt
	assert.Equal(t, sampleOrder().CreatedAt, args[12])
}

func TestPostgresRecordError(t *testing.T) {
	conn := &fakeConn{err: errors.New("connection refused")}
	err := NewPostgres(fakeTx{conn: conn}).Record(context.Background(), sampleOrder())
	assert.ErrorContains(t, err, "journal order mock-7")
}

type slowRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (s *slowRecorder) Record(_ context.Context, o models.Order) error {
	s.mu.Lock()
	s.ids = append(s.ids, o.ID)
	s.mu.Unlock()
	return nil
}

func (s *slowRecorder) got() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

func TestAsyncDrainsOnStop(t *testing.T) {
	inner := &slowRecorder{}
	a := NewAsync(inner, 2)

	for _, id := range []string{"1", "2", "3"} {
		o := sampleOrder()
		o.ID = id
		require.NoError(t, a.Record(context.Background(), o))
	}
	assert.Equal(t, 1, a.Dropped())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Run(ctx)
	assert.ElementsMatch(t, []string{"1", "2"}, inner.got())
}

func TestAsyncWritesWhileRunning(t *testing.T) {
	inner := &slowRecorder{}
	a := NewAsync(inner, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	require.NoError(t, a.Record(context.Background(), sampleOrder()))
	assert.Eventually(t, func() bool { return len(inner.got()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
