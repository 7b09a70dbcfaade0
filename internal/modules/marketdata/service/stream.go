package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"exec_bot/internal/models"
	"exec_bot/pkg/clock"
	"exec_bot/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// StatusSink получает состояние соединения (health).
type StatusSink interface {
	SetWSConnected(v bool)
}

// Stream держит websocket с 24h тикерами Binance и пишет их в кеш.
// Обрыв: переподключение через reconnectDelay.
type Stream struct {
	url     string
	symbols []string
	cache   *Cache
	status  StatusSink
	clock   clock.Clock
	dialer  *websocket.Dialer

	reconnectDelay time.Duration
}

func NewStream(url string, symbols []string, cache *Cache, status StatusSink, clk clock.Clock) *Stream {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Stream{
		url:            url,
		symbols:        symbols,
		cache:          cache,
		status:         status,
		clock:          clk,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		reconnectDelay: time.Second,
	}
}

type subscribeReq struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

type tickerFrame struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Last      string `json:"c"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Volume    string `json:"v"`
}

// Run блокируется до отмены ctx.
func (s *Stream) Run(ctx context.Context) {
	if len(s.symbols) == 0 {
		logger.Warn("[WS] no symbols, stream not started")
		return
	}
	for {
		err := s.session(ctx)
		s.setConnected(false)
		if ctx.Err() != nil {
			logger.Info("[WS] stream stopped")
			return
		}
		logger.Warn("[WS] session ended: %v, reconnect in %s", err, s.reconnectDelay)
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.reconnectDelay):
		}
	}
}

func (s *Stream) session(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	defer conn.Close()

	// ReadMessage не смотрит на ctx, закрываем соединение сами
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	params := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		params = append(params, strings.ToLower(sym)+"@ticker")
	}
	body, err := sonic.Marshal(subscribeReq{Method: "SUBSCRIBE", Params: params, ID: 1})
	if err != nil {
		return errors.Wrap(err, "encode subscribe")
	}
	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return errors.Wrap(err, "subscribe")
	}
	s.setConnected(true)
	logger.Info("[WS] connected %s, %d symbols", s.url, len(s.symbols))

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "read")
		}
		snap, ok := parseTicker(msg)
		if !ok {
			continue
		}
		s.cache.Put(snap)
	}
}

func (s *Stream) setConnected(v bool) {
	if s.status != nil {
		s.status.SetWSConnected(v)
	}
}

// parseTicker разбирает кадр 24hrTicker; ответы на подписку и прочее пропускаем.
func parseTicker(msg []byte) (models.Snapshot, bool) {
	var f tickerFrame
	if err := sonic.Unmarshal(msg, &f); err != nil {
		return models.Snapshot{}, false
	}
	if f.Event != "24hrTicker" || f.Symbol == "" {
		return models.Snapshot{}, false
	}
	last := num(f.Last)
	if last <= 0 {
		return models.Snapshot{}, false
	}
	return models.Snapshot{
		Symbol: f.Symbol,
		Time:   time.UnixMilli(f.EventTime),
		Price:  last,
		Open:   num(f.Open),
		High:   num(f.High),
		Low:    num(f.Low),
		Close:  last,
		Volume: num(f.Volume),
	}, true
}

func num(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
