package forwarder

import (
	"errors"
	"sync"
	"time"
)

// State 熔断器状态
type State int

const (
	StateClosed   State = iota // 正常，允许请求
	StateOpen                  // 熔断，拒绝请求
	StateHalfOpen              // 半开，允许少量试探
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen 下游持续失败，熔断器拒绝请求
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyProbes 半开状态下试探请求已满
	ErrTooManyProbes = errors.New("too many requests in half-open state")
)

// CircuitBreaker 保护下游 CRM 的熔断器。
// 连续失败达到阈值后打开，超时后进入半开，半开期间任一失败立即重新打开。
type CircuitBreaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	probes       int
	probeOK      int
	lastFailTime time.Time
	tripCount    int64

	threshold   int
	timeout     time.Duration
	halfOpenMax int
	now         func() time.Time

	onStateChange func(from, to State)
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(threshold int, timeout time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CircuitBreaker{
		state:       StateClosed,
		threshold:   threshold,
		timeout:     timeout,
		halfOpenMax: 2,
		now:         time.Now,
	}
}

// OnStateChange 设置状态变化回调，在持锁外同步调用
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	cb.onStateChange = fn
	cb.mu.Unlock()
}

// Call 在熔断器保护下执行 fn
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	var from, to State
	changed := false
	defer func() {
		cb.mu.Unlock()
		if changed {
			cb.notify(from, to)
		}
	}()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.lastFailTime) < cb.timeout {
			return ErrCircuitOpen
		}
		from, to, changed = cb.state, StateHalfOpen, true
		cb.state = StateHalfOpen
		cb.probes, cb.probeOK = 1, 0
		return nil
	default:
		if cb.probes >= cb.halfOpenMax {
			return ErrTooManyProbes
		}
		cb.probes++
		return nil
	}
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	from := cb.state
	if err != nil {
		cb.failures++
		cb.lastFailTime = cb.now()
		if cb.state == StateHalfOpen || cb.failures >= cb.threshold {
			if cb.state != StateOpen {
				cb.tripCount++
			}
			cb.state = StateOpen
		}
	} else {
		switch cb.state {
		case StateHalfOpen:
			cb.probeOK++
			if cb.probeOK >= cb.halfOpenMax {
				cb.state = StateClosed
				cb.failures = 0
			}
		case StateClosed:
			cb.failures = 0
		}
	}
	to := cb.state
	cb.mu.Unlock()

	if from != to {
		cb.notify(from, to)
	}
}

func (cb *CircuitBreaker) notify(from, to State) {
	cb.mu.Lock()
	fn := cb.onStateChange
	cb.mu.Unlock()
	if fn != nil {
		fn(from, to)
	}
}

// State 当前状态
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats 统计信息
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerStats{
		State:     cb.state.String(),
		Failures:  cb.failures,
		TripCount: cb.tripCount,
	}
}

// BreakerStats 熔断器统计
type BreakerStats struct {
	State     string `json:"state"`
	Failures  int    `json:"failures"`
	TripCount int64  `json:"trip_count"`
}
