package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dedupKeyPrefix = "gps:dedup"

	// DefaultDedupTTL 默认去重窗口
	DefaultDedupTTL = 10 * time.Minute
)

// Deduper 判断一帧是否在窗口内已处理过
type Deduper interface {
	Seen(ctx context.Context, frameHex string) (bool, error)
}

type setNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisDeduper 基于 Redis SETNX 的去重器，多实例共享
type RedisDeduper struct {
	rdb setNXer
	ttl time.Duration
}

// NewRedisDeduper 创建去重器
func NewRedisDeduper(rdb redis.Cmdable, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

// Seen 首次出现返回 false 并占位；窗口内再次出现返回 true
func (d *RedisDeduper) Seen(ctx context.Context, frameHex string) (bool, error) {
	if frameHex == "" {
		return false, fmt.Errorf("empty frame")
	}
	ok, err := d.rdb.SetNX(ctx, buildKey(frameHex), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return !ok, nil
}

// buildKey 帧内容摘要作为键，避免长帧占用内存
func buildKey(frameHex string) string {
	sum := sha1.Sum([]byte(frameHex))
	return fmt.Sprintf("%s:%s", dedupKeyPrefix, hex.EncodeToString(sum[:]))
}
