package service

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"exec_bot/internal/models"
	"exec_bot/internal/modules/config"
	"exec_bot/pkg/clock"
	"exec_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// Live: адаптер Binance USDT-M Futures (REST).
type Live struct {
	baseURL    string
	apiKey     string
	recvWindow time.Duration

	http     *http.Client
	signer   Signer
	throttle *Throttle
	clock    clock.Clock

	// serverTime - localTime, мс
	offset atomic.Int64

	filtersMu  sync.RWMutex
	filters    map[string]models.Instrument
	filtersAt  time.Time
	filtersTTL time.Duration
}

func NewLive(cfg config.ExchangeConfig, clk clock.Clock) *Live {
	if clk == nil {
		clk = clock.Real{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Live{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		recvWindow: cfg.RecvWindow,
		http:       &http.Client{Timeout: timeout},
		signer:     NewSigner(cfg.APISecret),
		throttle:   NewThrottle(cfg.RatePerSec, cfg.Burst),
		clock:      clk,
		filters:    make(map[string]models.Instrument),
		filtersTTL: cfg.FiltersTTL,
	}
}

func (l *Live) Name() string { return "binance_futures" }

// Offset: текущая поправка локальных часов, для логов и тестов.
func (l *Live) Offset() time.Duration {
	return time.Duration(l.offset.Load()) * time.Millisecond
}

func (l *Live) timestamp() int64 {
	return l.clock.Now().UnixMilli() + l.offset.Load()
}

// do выполняет запрос. signed=true добавляет timestamp, recvWindow и подпись.
// Ответ не-2xx превращается в классифицированную ошибку.
func (l *Live) do(ctx context.Context, method, path string, params url.Values, signed bool, out any) error {
	// очередь к бирже до подписи: timestamp должен быть свежим на момент отправки
	if err := l.throttle.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	if signed {
		params.Set("timestamp", strconv.FormatInt(l.timestamp(), 10))
		if l.recvWindow > 0 {
			params.Set("recvWindow", strconv.FormatInt(l.recvWindow.Milliseconds(), 10))
		}
	}
	query := params.Encode()
	if signed {
		query += "&signature=" + l.signer.Sign(query)
	}

	endpoint := l.baseURL + path
	if query != "" {
		endpoint += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return models.WrapKind(models.KindValidation, err, "build request")
	}
	if l.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", l.apiKey)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err)
	}

	if resp.StatusCode/100 != 2 {
		var apiErr apiError
		_ = sonic.Unmarshal(body, &apiErr)
		e := classify(resp.StatusCode, apiErr)
		logger.Debug("[EXCHANGE] %s %s -> %d: %s", method, path, resp.StatusCode, e.Error())
		return e
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return models.WrapKind(models.KindTransient, err, "decode "+path)
	}
	return nil
}

// SyncTime берёт серверное время и пересчитывает поправку.
func (l *Live) SyncTime(ctx context.Context) error {
	before := l.clock.Now()
	var resp struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := l.do(ctx, http.MethodGet, "/fapi/v1/time", nil, false, &resp); err != nil {
		return errors.Wrap(err, "sync time")
	}
	after := l.clock.Now()
	local := before.UnixMilli() + after.Sub(before).Milliseconds()/2
	l.offset.Store(resp.ServerTime - local)
	logger.Info("[EXCHANGE] clock offset %dms", resp.ServerTime-local)
	return nil
}

func parseDec(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
