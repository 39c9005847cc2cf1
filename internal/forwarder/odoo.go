package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gps-gateway/internal/config"
	"github.com/taoyao-code/gps-gateway/internal/metrics"
	"github.com/taoyao-code/gps-gateway/internal/sink"
)

// ErrLoginFailed 用户名或密码被 Odoo 拒绝
var ErrLoginFailed = errors.New("odoo login failed")

// RPCError Odoo JSON-RPC 返回的错误对象
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

func (e *RPCError) Error() string {
	if e.Data.Message != "" {
		return fmt.Sprintf("odoo rpc %d: %s: %s", e.Code, e.Message, e.Data.Message)
	}
	return fmt.Sprintf("odoo rpc %d: %s", e.Code, e.Message)
}

// authFailure 会话或凭据失效，需要重新登录
func (e *RPCError) authFailure() bool {
	return strings.Contains(e.Data.Name, "AccessDenied") || strings.Contains(e.Data.Name, "SessionExpired")
}

type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("http %d", e.code) }

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// OdooForwarder 通过 JSON-RPC 在 Odoo 中为每帧创建一条记录
type OdooForwarder struct {
	cfg     cfgpkg.ForwarderConfig
	client  *http.Client
	log     *zap.Logger
	metrics *metrics.AppMetrics
	breaker *CircuitBreaker
	limiter *RateLimiter
	backoff []time.Duration

	mu     sync.Mutex
	uid    int64
	nextID atomic.Int64
}

// NewOdooForwarder 创建转发器；m 可为 nil
func NewOdooForwarder(cfg cfgpkg.ForwarderConfig, log *zap.Logger, m *metrics.AppMetrics) *OdooForwarder {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "x_gps"
	}
	f := &OdooForwarder{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log.With(zap.String("component", "odoo")),
		metrics: m,
		breaker: NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerTimeout),
		limiter: NewRateLimiter(cfg.RatePerSec, cfg.Burst),
		backoff: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, time.Second, 2 * time.Second},
	}
	f.breaker.OnStateChange(func(from, to State) {
		f.log.Warn("odoo circuit breaker state changed",
			zap.String("from", from.String()), zap.String("to", to.String()))
	})
	return f
}

// Name 下游名称
func (f *OdooForwarder) Name() string { return "odoo" }

// Breaker 返回熔断器，供健康检查读取状态
func (f *OdooForwarder) Breaker() *CircuitBreaker { return f.breaker }

// Write 将记录转发为 Odoo 记录（x_name=十六进制, x_json=解码结果或 false）
func (f *OdooForwarder) Write(ctx context.Context, rec sink.Record) error {
	if err := f.limiter.Wait(ctx); err != nil {
		f.observe("rejected", 0)
		return fmt.Errorf("forward rate limit: %w", err)
	}

	start := time.Now()
	var recordID int64
	err := f.breaker.Call(func() error {
		var err error
		recordID, err = f.create(ctx, rec)
		return err
	})
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrTooManyProbes):
		f.observe("rejected", 0)
		return err
	case err != nil:
		f.observe("error", elapsed)
		return fmt.Errorf("forward %s: %w", rec.Message.ID, err)
	}

	f.observe("ok", elapsed)
	f.log.Debug("frame forwarded",
		zap.String("msg_id", rec.Message.ID),
		zap.Int64("record_id", recordID),
		zap.Duration("elapsed", elapsed))
	return nil
}

func (f *OdooForwarder) observe(result string, d time.Duration) {
	if f.metrics == nil {
		return
	}
	f.metrics.ForwardTotal.WithLabelValues(result).Inc()
	if d > 0 {
		f.metrics.ForwardDuration.Observe(d.Seconds())
	}
}

func (f *OdooForwarder) create(ctx context.Context, rec sink.Record) (int64, error) {
	values := map[string]any{"x_name": rec.Hex, "x_json": false}
	if rec.Frame != nil {
		b, err := json.Marshal(rec.Frame)
		if err != nil {
			return 0, fmt.Errorf("marshal frame: %w", err)
		}
		values["x_json"] = string(b)
	}

	for attempt := 0; ; attempt++ {
		uid, err := f.login(ctx)
		if err != nil {
			return 0, err
		}
		res, err := f.call(ctx, "object", "execute_kw",
			f.cfg.DB, uid, f.cfg.Password, f.cfg.Model, "create", []any{values})
		var rpcErr *RPCError
		if attempt == 0 && errors.As(err, &rpcErr) && rpcErr.authFailure() {
			f.log.Info("odoo session rejected, logging in again")
			f.resetLogin()
			continue
		}
		if err != nil {
			return 0, err
		}
		var id int64
		if err := json.Unmarshal(res, &id); err != nil {
			return 0, fmt.Errorf("decode create result %s: %w", string(res), err)
		}
		return id, nil
	}
}

// login 返回缓存的 uid，首次调用时执行 common.login
func (f *OdooForwarder) login(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uid != 0 {
		return f.uid, nil
	}

	res, err := f.call(ctx, "common", "login", f.cfg.DB, f.cfg.Username, f.cfg.Password)
	if err != nil {
		return 0, fmt.Errorf("odoo login: %w", err)
	}
	var uid int64
	if err := json.Unmarshal(res, &uid); err != nil || uid == 0 {
		// 凭据错误时 Odoo 返回 false
		return 0, ErrLoginFailed
	}
	f.uid = uid
	f.log.Info("odoo login ok", zap.Int64("uid", uid), zap.String("db", f.cfg.DB))
	return uid, nil
}

func (f *OdooForwarder) resetLogin() {
	f.mu.Lock()
	f.uid = 0
	f.mu.Unlock()
}

// call 执行一次 JSON-RPC 调用，网络错误与 5xx 按退避重试
func (f *OdooForwarder) call(ctx context.Context, service, method string, args ...any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      f.nextID.Add(1),
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= f.cfg.Retries; attempt++ {
		if attempt > 0 {
			wait := f.backoff[min(attempt-1, len(f.backoff)-1)]
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		res, err := f.post(ctx, body)
		if err == nil {
			return res, nil
		}
		lastErr = err
		var se *statusError
		if errors.As(err, &se) && se.code < 500 {
			return nil, err
		}
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return nil, err
		}
		f.log.Warn("odoo call failed",
			zap.String("method", service+"."+method),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, lastErr
}

func (f *OdooForwarder) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode}
	}

	var out rpcResponse
	if err := json.Unmarshal(rb, &out); err != nil {
		return nil, fmt.Errorf("decode rpc response: %w", err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return out.Result, nil
}
