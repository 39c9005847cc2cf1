package livefeed

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/gps-gateway/internal/metrics"
	"github.com/taoyao-code/gps-gateway/internal/protocol/jt808"
	"github.com/taoyao-code/gps-gateway/internal/sink"
	"github.com/taoyao-code/gps-gateway/internal/transport"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_Broadcast(t *testing.T) {
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	h := NewHub(nil, m)
	srv := httptest.NewServer(h)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitClients(t, h, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LiveClients))

	hex := "7E000200000138001380000007007E"
	frame, err := jt808.Decode(hex)
	require.NoError(t, err)
	msg := transport.NewMessage("mqtt", "gps", nil)
	require.NoError(t, h.Write(context.Background(), sink.Record{Message: msg, Hex: hex, Frame: frame}))

	for _, c := range []*websocket.Conn{a, b} {
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := c.ReadMessage()
		require.NoError(t, err)
		var e sink.Entry
		require.NoError(t, json.Unmarshal(data, &e))
		assert.Equal(t, msg.ID, e.ID)
		assert.Equal(t, hex, e.Hex)
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	h := NewHub(nil, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := dial(t, srv)
	waitClients(t, h, 1)
	require.NoError(t, c.Close())
	waitClients(t, h, 0)
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := NewHub(nil, nil)
	slow := &client{remote: "10.0.0.9:5000", send: make(chan []byte, 1)}
	slow.send <- []byte("{}")
	h.clients[slow] = struct{}{}

	rec := sink.Record{Message: transport.NewMessage("mqtt", "gps", nil), Hex: "7E"}
	require.NoError(t, h.Write(context.Background(), rec))
	assert.Equal(t, 0, h.Clients())

	// 发送通道已关闭，缓冲中的数据仍可被写协程取完
	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok)
}
