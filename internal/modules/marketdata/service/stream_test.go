package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flag struct{ v atomic.Bool }

func (f *flag) SetWSConnected(v bool) { f.v.Store(v) }

func TestParseTicker(t *testing.T) {
	snap, ok := parseTicker([]byte(`{"e":"24hrTicker","E":1700000000000,"s":"BTCUSDT","c":"37000.5","o":"36000","h":"37500","l":"35900","v":"1234.5"}`))
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", snap.Symbol)
	assert.Equal(t, 37000.5, snap.Price)
	assert.Equal(t, 1234.5, snap.Volume)
	assert.Equal(t, int64(1700000000000), snap.Time.UnixMilli())

	_, ok = parseTicker([]byte(`{"result":null,"id":1}`))
	assert.False(t, ok)
	_, ok = parseTicker([]byte(`not json`))
	assert.False(t, ok)
}

func TestStreamSubscribesAndCaches(t *testing.T) {
	subscribed := make(chan subscribeReq, 1)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req subscribeReq
		if sonic.Unmarshal(msg, &req) == nil {
			subscribed <- req
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"result":null,"id":1}`))
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"e":"24hrTicker","E":1700000000000,"s":"ETHUSDT","c":"2000","v":"10"}`))
		// держим соединение до закрытия клиентом
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	cache := NewCache()
	status := &flag{}
	s := NewStream("ws"+strings.TrimPrefix(srv.URL, "http"), []string{"ETHUSDT"}, cache, status, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	select {
	case req := <-subscribed:
		assert.Equal(t, "SUBSCRIBE", req.Method)
		assert.Equal(t, []string{"ethusdt@ticker"}, req.Params)
	case <-time.After(3 * time.Second):
		t.Fatal("no subscribe")
	}

	assert.Eventually(t, func() bool {
		snap, ok := cache.Last("ETHUSDT")
		return ok && snap.Price == 2000
	}, 3*time.Second, 10*time.Millisecond)
	assert.True(t, status.v.Load())

	cancel()
	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not stop")
	}
	assert.False(t, status.v.Load())
}
