package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"exec_bot/internal/models"
	exchange "exec_bot/internal/modules/exchange/service"
	marketdata "exec_bot/internal/modules/marketdata/service"
	order "exec_bot/internal/modules/order/service"
	strategy "exec_bot/internal/modules/strategy/service"
	"exec_bot/pkg/clock"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	srv        *Server
	mock       *exchange.Mock
	cache      *marketdata.Cache
	strategies *strategy.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	mock := exchange.NewMock(clk)
	mock.SetMarket("BTCUSDT", 100, 0)
	cache := marketdata.NewCache()
	cache.Put(models.Snapshot{Symbol: "BTCUSDT", Time: clk.Now(), Price: 100})
	src := marketdata.NewSource(mock, cache, marketdata.SourceOptions{Clock: clk})

	repo := order.NewRepository()
	orders := order.NewManager(mock, repo, src, order.Options{Clock: clk})
	strategies := strategy.NewManager()

	srv := NewServer(Deps{
		Strategies: strategies,
		Builder:    strategy.NewFactory(repo, nil),
		Orders:     orders,
		Market:     src,
		Futures: func(ctx context.Context, s []models.FuturesSettings) []models.FuturesResult {
			return exchange.ApplyFutures(ctx, mock, s)
		},
	})
	return &fixture{srv: srv, mock: mock, cache: cache, strategies: strategies}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStrategyLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/strategies",
		`{"type":"twap","symbol":"btc-usdt","params":{"side":"buy","quantity":2,"window":60}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var info models.StrategyInfo
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "twap:BTCUSDT", info.Name)
	assert.True(t, info.Active)

	rec = f.do(http.MethodPost, "/api/v1/strategies",
		`{"type":"twap","symbol":"BTCUSDT","params":{"side":"sell","quantity":1,"window":"1m"}}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	// исходная стратегия не тронута
	s, ok := f.strategies.Get("twap:BTCUSDT")
	require.True(t, ok)
	assert.True(t, s.IsActive())

	rec = f.do(http.MethodPost, "/api/v1/strategies/twap:BTCUSDT/toggle", `{"active":false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, s.IsActive())

	rec = f.do(http.MethodGet, "/api/v1/strategies", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active":false`)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/api/v1/strategies/twap:BTCUSDT", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/api/v1/strategies/twap:BTCUSDT", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/v1/strategies/nope/toggle", `{"active":true}`).Code)
}

func TestStrategyValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]string{
		"unknown type":  `{"type":"martingale","symbol":"BTCUSDT"}`,
		"no symbol":     `{"type":"twap","params":{"side":"buy","quantity":1,"window":10}}`,
		"bad json":      `{"type":`,
		"empty body":    ``,
		"missing param": `{"type":"iceberg","symbol":"BTCUSDT","params":{"side":"buy"}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/v1/strategies", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/strategies/x/toggle", `{}`).Code)
}

func TestOrderEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/orders",
		`{"symbol":"BTCUSDT","side":"BUY","type":"LIMIT","quantity":"1","price":"90","time_in_force":"gtc"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed orderResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &placed))
	assert.Equal(t, models.StatusAccepted, placed.Status)
	assert.NotEmpty(t, placed.ClientOrderID)

	rec = f.do(http.MethodGet, "/api/v1/orders", "")
	assert.Contains(t, rec.Body.String(), placed.ID)

	rec = f.do(http.MethodGet, "/api/v1/orders/"+placed.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"time_in_force":"GTC"`)

	rec = f.do(http.MethodDelete, "/api/v1/orders/"+placed.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"CANCELLED"`)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/orders/mock-99", "").Code)
	assert.Equal(t, http.StatusBadGateway, f.do(http.MethodDelete, "/api/v1/orders/"+placed.ID, "").Code)
}

func TestOrderErrorMapping(t *testing.T) {
	f := newFixture(t)
	body := `{"symbol":"BTCUSDT","side":"BUY","type":"MARKET","quantity":1}`

	assert.Equal(t, http.StatusBadRequest,
		f.do(http.MethodPost, "/api/v1/orders", `{"symbol":"BTCUSDT","side":"HOLD","quantity":1}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		f.do(http.MethodPost, "/api/v1/orders", `{"symbol":"BTCUSDT","side":"BUY","quantity":0.00001}`).Code)

	f.mock.FailNext(&models.Error{Kind: models.KindRejection, Code: -2010, Msg: "insufficient balance"})
	rec := f.do(http.MethodPost, "/api/v1/orders", body)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"rejection"`)

	f.do(http.MethodPost, "/api/v1/orders", `{"symbol":"BTCUSDT","side":"BUY","quantity":1,"client_order_id":"same"}`)
	assert.Equal(t, http.StatusConflict,
		f.do(http.MethodPost, "/api/v1/orders", `{"symbol":"BTCUSDT","side":"BUY","quantity":1,"client_order_id":"same"}`).Code)
}

func TestMarketAndPositions(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/market/btcusdt", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":100`)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/market/ETHUSDT", "").Code)

	require.Equal(t, http.StatusCreated,
		f.do(http.MethodPost, "/api/v1/orders", `{"symbol":"BTCUSDT","side":"SELL","quantity":"0.5"}`).Code)
	rec = f.do(http.MethodGet, "/api/v1/positions", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var pos []models.Position
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &pos))
	require.Len(t, pos, 1)
	assert.True(t, pos[0].IsShort())
}

func TestFuturesSettings(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/v1/futures/settings",
		`{"symbol":"BTCUSDT","leverage":20,"margin_mode":"ISOLATED"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/futures/settings",
		`{"symbols":["ETHUSDT","SOLUSDT"],"leverage":200}`)
	assert.Equal(t, http.StatusMultiStatus, rec.Code)
	var res []models.FuturesResult
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res, 2)
	assert.False(t, res[0].OK)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/futures/settings", `{"leverage":5}`).Code)
	assert.Len(t, f.mock.FuturesApplied(), 1)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
