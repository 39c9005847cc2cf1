package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/gps-gateway/internal/config"
	"github.com/taoyao-code/gps-gateway/internal/forwarder"
	"github.com/taoyao-code/gps-gateway/internal/health"
	"github.com/taoyao-code/gps-gateway/internal/livefeed"
	"github.com/taoyao-code/gps-gateway/internal/metrics"
	"github.com/taoyao-code/gps-gateway/internal/sink"
)

// Sinks 按写入顺序排列的下游及其资源
type Sinks struct {
	List      []sink.Sink
	File      *sink.FileSink
	Hub       *livefeed.Hub
	Forwarder *forwarder.OdooForwarder
}

// NewSinks 创建下游：文件日志 → 实时推送 → Odoo 转发
func NewSinks(cfg *cfgpkg.Config, logger *zap.Logger, appm *metrics.AppMetrics) *Sinks {
	s := &Sinks{}
	if cfg.Sink.Enable {
		s.File = sink.NewFileSinkFromConfig(cfg.Sink)
		s.List = append(s.List, s.File)
		logger.Info("file sink enabled",
			zap.String("raw", cfg.Sink.Raw.Filename),
			zap.String("parsed", cfg.Sink.Parsed.Filename))
	}

	s.Hub = livefeed.NewHub(logger, appm)
	s.List = append(s.List, s.Hub)

	if cfg.Forwarder.Enable {
		s.Forwarder = forwarder.NewOdooForwarder(cfg.Forwarder, logger, appm)
		s.List = append(s.List, s.Forwarder)
		logger.Info("odoo forwarder enabled",
			zap.String("url", cfg.Forwarder.URL),
			zap.String("model", cfg.Forwarder.Model))
	}
	return s
}

// AddCheckers 将转发熔断器加入健康检查
func (s *Sinks) AddCheckers(agg *health.Aggregator) {
	if s.Forwarder != nil {
		agg.AddChecker(health.NewBreakerChecker(s.Forwarder.Name(), s.Forwarder.Breaker()))
	}
}

// Close 断开实时推送并关闭文件
func (s *Sinks) Close() error {
	s.Hub.Close()
	if s.File != nil {
		return s.File.Close()
	}
	return nil
}
