package forwarder

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// RateLimiter 基于令牌桶的转发限速器
type RateLimiter struct {
	limiter  *rate.Limiter
	allowed  atomic.Int64
	rejected atomic.Int64
}

// NewRateLimiter 创建限速器；ratePerSec<=0 表示不限速
func NewRateLimiter(ratePerSec, burst int) *RateLimiter {
	if ratePerSec <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst <= 0 {
		burst = ratePerSec
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

// Wait 阻塞直到获得令牌或 ctx 结束
func (l *RateLimiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		l.rejected.Add(1)
		return err
	}
	l.allowed.Add(1)
	return nil
}

// Stats 累计放行与拒绝次数
func (l *RateLimiter) Stats() (allowed, rejected int64) {
	return l.allowed.Load(), l.rejected.Load()
}
