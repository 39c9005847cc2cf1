package bootstrap

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/gps-gateway/internal/api"
	"github.com/taoyao-code/gps-gateway/internal/api/middleware"
	"github.com/taoyao-code/gps-gateway/internal/app"
	cfgpkg "github.com/taoyao-code/gps-gateway/internal/config"
	"github.com/taoyao-code/gps-gateway/internal/discovery"
	"github.com/taoyao-code/gps-gateway/internal/ingest"
	"github.com/taoyao-code/gps-gateway/internal/metrics"
	"github.com/taoyao-code/gps-gateway/internal/transport"
)

const shutdownTimeout = 10 * time.Second

// Run 统一启动流程，阻塞到收到 SIGINT/SIGTERM 或来源不可恢复地失败
func Run(cfg *cfgpkg.Config, log *zap.Logger, version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting gps gateway",
		zap.String("version", version),
		zap.String("revision", cfg.Protocol.Revision),
		zap.String("timezone", cfg.Protocol.Timezone))

	// ========== 阶段1: 基础组件 ==========
	reg, appm := app.NewMetrics()
	dec, err := app.NewDecoder(cfg.Protocol)
	if err != nil {
		return err
	}
	healthAgg := app.NewHealthAggregator()

	// ========== 阶段2: Redis（来源与去重共用，失败直接返回）==========
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Error("redis initialization failed", zap.Error(err))
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		app.AddRedisChecker(healthAgg, redisClient)
	}

	// ========== 阶段3: 下游与流水线 ==========
	sinks := app.NewSinks(cfg, log, appm)
	defer func() {
		if err := sinks.Close(); err != nil {
			log.Warn("close sinks", zap.Error(err))
		}
	}()
	sinks.AddCheckers(healthAgg)

	var deduper ingest.Deduper
	if redisClient != nil && cfg.Redis.Dedup {
		deduper = ingest.NewRedisDeduper(redisClient.Client, cfg.Redis.DedupTTL)
		log.Info("frame dedup enabled", zap.Duration("ttl", cfg.Redis.DedupTTL))
	}

	sources := app.NewSources(cfg, redisClient, log)
	if len(sources.List) == 0 {
		log.Warn("no message source enabled, only the decode API is served")
	}
	sources.AddCheckers(healthAgg)

	pipeline := ingest.New(ingest.Options{
		Decoder:   dec,
		Sinks:     sinks.List,
		Deduper:   deduper,
		Formats:   sources.Formats,
		Workers:   cfg.Ingest.Workers,
		QueueSize: cfg.Ingest.QueueSize,
		Logger:    log,
		Metrics:   appm,
	})

	// ========== 阶段4: HTTP 服务 ==========
	httpSrv := app.NewHTTPServer(cfg, metrics.Handler(reg), healthAgg.Ready)
	httpSrv.Register(func(r *gin.Engine) {
		authCfg := middleware.AuthConfig{APIKeys: cfg.API.APIKeys, Enabled: cfg.API.AuthEnabled}
		api.RegisterDecodeRoutes(r, dec, authCfg, log)
		app.RegisterHealthRoutes(r, healthAgg)
	})
	httpSrv.HandleWebsocket("/ws/frames", sinks.Hub)

	ln, port, err := httpSrv.Listen()
	if err != nil {
		log.Error("http listen failed", zap.String("addr", cfg.HTTP.Addr), zap.Error(err))
		return err
	}
	go func() {
		if err := httpSrv.Serve(ln, log); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()

	// ========== 阶段5: mDNS ==========
	stopMDNS, err := discovery.Advertise(ctx, cfg.MDNS, port, discovery.Info{Revision: string(dec.Revision()), Version: version})
	if err != nil {
		// 服务发布失败不影响帧处理
		log.Warn("mdns advertise failed", zap.Error(err))
		stopMDNS = func() {}
	}
	defer stopMDNS()

	// ========== 阶段6: 流水线与来源 ==========
	pipeCtx, pipeCancel := context.WithCancel(context.Background())
	pipeDone := make(chan struct{})
	go func() {
		pipeline.Run(pipeCtx)
		close(pipeDone)
	}()

	srcCtx, srcCancel := context.WithCancel(ctx)
	srcErr := make(chan error, len(sources.List))
	var srcWG sync.WaitGroup
	for _, src := range sources.List {
		srcWG.Add(1)
		go func(src transport.Source) {
			defer srcWG.Done()
			log.Info("source started", zap.String("source", src.Name()))
			if err := src.Run(srcCtx, func(m transport.Message) { pipeline.Handle(m) }); err != nil {
				log.Error("source stopped with error", zap.String("source", src.Name()), zap.Error(err))
				srcErr <- err
			}
		}(src)
	}

	log.Info("all services ready", zap.Int("sources", len(sources.List)), zap.Int("http_port", port))

	// ========== 阶段7: 等待关闭 ==========
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal, gracefully shutting down...")
	case runErr = <-srcErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	srcCancel()
	srcWG.Wait()
	log.Info("sources stopped")

	pipeCancel()
	select {
	case <-pipeDone:
		log.Info("pipeline drained")
	case <-shutdownCtx.Done():
		log.Warn("pipeline drain timed out")
	}

	if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn("http shutdown", zap.Error(err))
	}
	log.Info("shutdown complete")
	return runErr
}
