package health

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taoyao-code/gps-gateway/internal/forwarder"
)

// RedisPinger Redis 健康检查所需的最小接口
type RedisPinger interface {
	HealthCheck(ctx context.Context) error
	Stats() *redis.PoolStats
}

// RedisChecker Redis 来源/去重的健康检查
type RedisChecker struct {
	client RedisPinger
}

// NewRedisChecker 创建 Redis 检查项
func NewRedisChecker(client RedisPinger) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string { return "redis" }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.client.HealthCheck(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
			Latency: time.Since(start),
		}
	}

	res := CheckResult{Status: StatusHealthy, Message: "ok"}
	if stats := c.client.Stats(); stats != nil {
		utilization := 0.0
		if stats.TotalConns > 0 {
			utilization = float64(stats.TotalConns-stats.IdleConns) / float64(stats.TotalConns)
		}
		if utilization > 0.9 {
			res.Status = StatusDegraded
			res.Message = "connection pool near limit"
		}
		res.Details = map[string]any{
			"total_conns": stats.TotalConns,
			"idle_conns":  stats.IdleConns,
			"timeouts":    stats.Timeouts,
		}
	}
	res.Latency = time.Since(start)
	return res
}

// ConnState 可报告连接状态的来源，如 MQTT
type ConnState interface {
	Name() string
	Connected() bool
}

// SourceChecker 来源连接检查；断开时不健康
type SourceChecker struct {
	src ConnState
}

// NewSourceChecker 创建来源检查项
func NewSourceChecker(src ConnState) *SourceChecker {
	return &SourceChecker{src: src}
}

func (c *SourceChecker) Name() string { return c.src.Name() }

func (c *SourceChecker) Check(context.Context) CheckResult {
	if c.src.Connected() {
		return CheckResult{Status: StatusHealthy, Message: "connected"}
	}
	return CheckResult{Status: StatusUnhealthy, Message: "disconnected"}
}

// BreakerChecker 转发熔断器检查；熔断时降级（帧仍落盘）
type BreakerChecker struct {
	name    string
	breaker *forwarder.CircuitBreaker
}

// NewBreakerChecker 创建熔断器检查项
func NewBreakerChecker(name string, b *forwarder.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{name: name, breaker: b}
}

func (c *BreakerChecker) Name() string { return c.name }

func (c *BreakerChecker) Check(context.Context) CheckResult {
	stats := c.breaker.Stats()
	res := CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]any{"state": stats.State, "trip_count": stats.TripCount},
	}
	if c.breaker.State() != forwarder.StateClosed {
		res.Status = StatusDegraded
		res.Message = "circuit breaker " + stats.State
	}
	return res
}
