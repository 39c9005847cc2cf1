package forwarder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/gps-gateway/internal/config"
	"github.com/taoyao-code/gps-gateway/internal/metrics"
	"github.com/taoyao-code/gps-gateway/internal/protocol/jt808"
	"github.com/taoyao-code/gps-gateway/internal/sink"
	"github.com/taoyao-code/gps-gateway/internal/transport"
)

// fakeOdoo 模拟 Odoo /jsonrpc 端点
type fakeOdoo struct {
	mu        sync.Mutex
	logins    int
	creates   []map[string]any
	failFirst int32 // 前 N 次请求返回 502
	expireOne bool  // 第一次 create 返回会话过期
	badLogin  bool
	calls     atomic.Int32
}

func (o *fakeOdoo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if o.calls.Add(1) <= o.failFirst {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	var req struct {
		Params struct {
			Service string `json:"service"`
			Method  string `json:"method"`
			Args    []json.RawMessage
		} `json:"params"`
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	reply := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	switch req.Params.Service + "." + req.Params.Method {
	case "common.login":
		o.logins++
		if o.badLogin {
			reply["result"] = false
		} else {
			reply["result"] = 7
		}
	case "object.execute_kw":
		if o.expireOne {
			o.expireOne = false
			reply["error"] = map[string]any{
				"code":    100,
				"message": "Odoo Session Expired",
				"data":    map[string]any{"name": "odoo.http.SessionExpiredException"},
			}
			break
		}
		var model, method string
		_ = json.Unmarshal(req.Params.Args[3], &model)
		_ = json.Unmarshal(req.Params.Args[4], &method)
		var vals []map[string]any
		_ = json.Unmarshal(req.Params.Args[5], &vals)
		if model != "x_gps" || method != "create" || len(vals) != 1 {
			reply["error"] = map[string]any{"code": 200, "message": "bad call"}
			break
		}
		o.creates = append(o.creates, vals[0])
		reply["result"] = len(o.creates)
	default:
		reply["error"] = map[string]any{"code": 404, "message": "unknown"}
	}
	_ = json.NewEncoder(w).Encode(reply)
}

func newForwarder(t *testing.T, o *fakeOdoo, mutate func(*cfgpkg.ForwarderConfig)) (*OdooForwarder, *metrics.AppMetrics) {
	t.Helper()
	srv := httptest.NewServer(o)
	t.Cleanup(srv.Close)
	cfg := cfgpkg.ForwarderConfig{
		Enable:   true,
		URL:      srv.URL + "/jsonrpc",
		DB:       "esg",
		Username: "admin",
		Password: "secret",
		Model:    "x_gps",
		Timeout:  2 * time.Second,
		Retries:  2,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	f := NewOdooForwarder(cfg, nil, m)
	f.backoff = []time.Duration{time.Millisecond}
	return f, m
}

func decodedRecord(t *testing.T) sink.Record {
	t.Helper()
	hex := "7E000200000138001380000007007E"
	frame, err := jt808.Decode(hex)
	require.NoError(t, err)
	return sink.Record{Message: transport.NewMessage("mqtt", "gps", nil), Hex: hex, Frame: frame}
}

func TestOdooForwarder_LoginOnceAndCreate(t *testing.T) {
	o := &fakeOdoo{}
	f, m := newForwarder(t, o, nil)
	ctx := context.Background()

	require.NoError(t, f.Write(ctx, decodedRecord(t)))
	require.NoError(t, f.Write(ctx, sink.Record{Message: transport.NewMessage("mqtt", "gps", nil), Hex: "7E02", Err: assert.AnError}))

	o.mu.Lock()
	defer o.mu.Unlock()
	assert.Equal(t, 1, o.logins, "uid 应被缓存")
	require.Len(t, o.creates, 2)
	assert.Equal(t, "7E000200000138001380000007007E", o.creates[0]["x_name"])
	js, ok := o.creates[0]["x_json"].(string)
	require.True(t, ok)
	assert.Contains(t, js, `"device_id":"013800138000"`)
	assert.Equal(t, false, o.creates[1]["x_json"])
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ForwardTotal.WithLabelValues("ok")))
}

func TestOdooForwarder_RetriesOn5xx(t *testing.T) {
	o := &fakeOdoo{failFirst: 2}
	f, _ := newForwarder(t, o, nil)
	require.NoError(t, f.Write(context.Background(), decodedRecord(t)))
	assert.Len(t, o.creates, 1)
}

func TestOdooForwarder_GivesUpAfterRetries(t *testing.T) {
	o := &fakeOdoo{failFirst: 100}
	f, m := newForwarder(t, o, func(c *cfgpkg.ForwarderConfig) { c.Retries = 1 })
	err := f.Write(context.Background(), decodedRecord(t))
	require.Error(t, err)
	assert.Equal(t, int32(2), o.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForwardTotal.WithLabelValues("error")))
}

func TestOdooForwarder_ReloginOnSessionExpired(t *testing.T) {
	o := &fakeOdoo{expireOne: true}
	f, _ := newForwarder(t, o, nil)
	require.NoError(t, f.Write(context.Background(), decodedRecord(t)))
	assert.Equal(t, 2, o.logins)
	assert.Len(t, o.creates, 1)
}

func TestOdooForwarder_BadCredentials(t *testing.T) {
	o := &fakeOdoo{badLogin: true}
	f, _ := newForwarder(t, o, nil)
	err := f.Write(context.Background(), decodedRecord(t))
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Empty(t, o.creates)
}

func TestOdooForwarder_BreakerOpens(t *testing.T) {
	o := &fakeOdoo{failFirst: 1000}
	f, m := newForwarder(t, o, func(c *cfgpkg.ForwarderConfig) {
		c.Retries = 0
		c.BreakerThreshold = 2
		c.BreakerTimeout = time.Hour
	})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		require.Error(t, f.Write(ctx, decodedRecord(t)))
	}
	assert.Equal(t, StateOpen, f.Breaker().State())

	before := o.calls.Load()
	assert.ErrorIs(t, f.Write(ctx, decodedRecord(t)), ErrCircuitOpen)
	assert.Equal(t, before, o.calls.Load(), "熔断期间不应访问下游")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForwardTotal.WithLabelValues("rejected")))
}
