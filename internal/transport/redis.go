package transport

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisSource 通过 Redis PSUBSCRIBE 接收帧
type RedisSource struct {
	rdb     redis.UniversalClient
	pattern string
	log     *zap.Logger
}

// NewRedisSource 创建 Redis 发布订阅来源
func NewRedisSource(rdb redis.UniversalClient, pattern string, log *zap.Logger) *RedisSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisSource{rdb: rdb, pattern: pattern, log: log}
}

// Name 来源名称
func (s *RedisSource) Name() string { return "redis" }

// Run 订阅频道模式并投递消息，直到 ctx 结束
func (s *RedisSource) Run(ctx context.Context, h Handler) error {
	if h == nil {
		return errors.New("redis: nil handler")
	}
	ps := s.rdb.PSubscribe(ctx, s.pattern)
	defer ps.Close()

	// 等待订阅确认
	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	s.log.Info("redis subscribed", zap.String("pattern", s.pattern))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("redis source stopped")
			return nil
		case m, ok := <-ch:
			if !ok {
				return errors.New("redis: subscription channel closed")
			}
			h(s.toMessage(m))
		}
	}
}

func (s *RedisSource) toMessage(m *redis.Message) Message {
	return NewMessage(s.Name(), m.Channel, []byte(m.Payload))
}
