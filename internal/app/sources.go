package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gps-gateway/internal/config"
	"github.com/taoyao-code/gps-gateway/internal/health"
	redisstorage "github.com/taoyao-code/gps-gateway/internal/storage/redis"
	"github.com/taoyao-code/gps-gateway/internal/transport"
)

// Sources 已启用的消息来源及其负载格式
type Sources struct {
	List    []transport.Source
	Formats map[string]string
	mqtt    *transport.MQTTSource
}

// NewSources 按配置创建 MQTT 与 Redis 来源；Redis 来源需要已连接的客户端
func NewSources(cfg *cfgpkg.Config, rdb *redisstorage.Client, logger *zap.Logger) *Sources {
	s := &Sources{Formats: map[string]string{}}
	if cfg.MQTT.Enable {
		s.mqtt = transport.NewMQTTSource(cfg.MQTT, logger)
		s.List = append(s.List, s.mqtt)
		s.Formats[s.mqtt.Name()] = cfg.MQTT.PayloadFormat
	}
	if rdb != nil && cfg.Redis.Channel != "" {
		src := transport.NewRedisSource(rdb.Client, cfg.Redis.Channel, logger)
		s.List = append(s.List, src)
		s.Formats[src.Name()] = cfg.Redis.PayloadFormat
	}
	return s
}

// AddCheckers 将 MQTT 连接状态加入健康检查
func (s *Sources) AddCheckers(agg *health.Aggregator) {
	if s.mqtt != nil {
		agg.AddChecker(health.NewSourceChecker(s.mqtt))
	}
}
