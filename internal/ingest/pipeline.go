package ingest

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/taoyao-code/gps-gateway/internal/metrics"
	"github.com/taoyao-code/gps-gateway/internal/protocol/jt808"
	"github.com/taoyao-code/gps-gateway/internal/sink"
	"github.com/taoyao-code/gps-gateway/internal/transport"
)

// Options 流水线参数
type Options struct {
	Decoder   *jt808.Decoder
	Sinks     []sink.Sink
	Deduper   Deduper           // 可为 nil
	Formats   map[string]string // 来源名 -> 负载格式，缺省按二进制
	Workers   int
	QueueSize int
	Logger    *zap.Logger
	Metrics   *metrics.AppMetrics // 可为 nil
}

// Pipeline 有界队列加固定数量 worker 的处理流水线
type Pipeline struct {
	dec     *jt808.Decoder
	sinks   []sink.Sink
	dedup   Deduper
	formats map[string]string
	workers int
	queue   chan transport.Message
	log     *zap.Logger
	metrics *metrics.AppMetrics
}

// New 创建流水线
func New(opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Decoder == nil {
		opts.Decoder = jt808.NewDecoder(jt808.RevisionMask, nil)
	}
	return &Pipeline{
		dec:     opts.Decoder,
		sinks:   opts.Sinks,
		dedup:   opts.Deduper,
		formats: opts.Formats,
		workers: opts.Workers,
		queue:   make(chan transport.Message, opts.QueueSize),
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
}

// Handle 入队一条消息；队列满时丢弃并返回 false，不阻塞来源
func (p *Pipeline) Handle(msg transport.Message) bool {
	if p.metrics != nil {
		p.metrics.FramesReceived.WithLabelValues(msg.Source).Inc()
	}
	select {
	case p.queue <- msg:
		p.setDepth()
		return true
	default:
		if p.metrics != nil {
			p.metrics.DroppedTotal.Inc()
		}
		p.log.Warn("ingest queue full, message dropped",
			zap.String("msg_id", msg.ID),
			zap.String("source", msg.Source),
			zap.Int("queue_size", cap(p.queue)))
		return false
	}
}

// Run 启动 worker 并阻塞到 ctx 结束；返回前处理完已入队的消息
func (p *Pipeline) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx)
		}()
	}
	wg.Wait()
	p.log.Info("ingest pipeline stopped")
}

func (p *Pipeline) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain(context.WithoutCancel(ctx))
			return
		case msg := <-p.queue:
			p.setDepth()
			p.Process(ctx, msg)
		}
	}
}

func (p *Pipeline) drain(ctx context.Context) {
	for {
		select {
		case msg := <-p.queue:
			p.setDepth()
			p.Process(ctx, msg)
		default:
			return
		}
	}
}

func (p *Pipeline) setDepth() {
	if p.metrics != nil {
		p.metrics.QueueDepth.Set(float64(len(p.queue)))
	}
}

// Process 同步处理一条消息并返回结果；重复帧返回 ok=false
func (p *Pipeline) Process(ctx context.Context, msg transport.Message) (sink.Record, bool) {
	log := p.log.With(zap.String("msg_id", msg.ID), zap.String("source", msg.Source))

	frameHex, err := msg.Hex(p.formats[msg.Source])
	if err != nil {
		log.Error("payload conversion failed", zap.Error(err))
		p.countDecode(err, nil)
		return sink.Record{Message: msg, Err: err}, false
	}

	if p.dedup != nil {
		dup, err := p.dedup.Seen(ctx, frameHex)
		switch {
		case err != nil:
			// 去重不可用时照常处理
			log.Warn("dedup check failed", zap.Error(err))
		case dup:
			if p.metrics != nil {
				p.metrics.DuplicateTotal.Inc()
			}
			log.Debug("duplicate frame skipped")
			return sink.Record{Message: msg, Hex: frameHex}, false
		}
	}

	frame, err := p.dec.Decode(frameHex)
	rec := sink.Record{Message: msg, Hex: frameHex, Frame: frame, Err: err}
	p.countDecode(err, frame)

	if err != nil {
		log.Warn("frame decode failed",
			zap.String("kind", string(jt808.KindOf(err))),
			zap.Error(err))
	} else {
		fields := []zap.Field{
			zap.String("message_id", frame.MessageIDHex()),
			zap.String("device_id", frame.Header.DeviceID),
			zap.Uint16("seq", frame.Header.Sequence),
		}
		if fe := frame.FieldErrors(); len(fe) > 0 {
			fields = append(fields, zap.Any("field_errors", fe))
		}
		log.Info("frame decoded", fields...)
	}

	for _, s := range p.sinks {
		if err := s.Write(ctx, rec); err != nil {
			if p.metrics != nil {
				p.metrics.SinkErrorTotal.WithLabelValues(s.Name()).Inc()
			}
			if errors.Is(err, context.Canceled) {
				log.Debug("sink write canceled", zap.String("sink", s.Name()))
				continue
			}
			log.Error("sink write failed", zap.String("sink", s.Name()), zap.Error(err))
		}
	}
	return rec, true
}

func (p *Pipeline) countDecode(err error, f *jt808.Frame) {
	if p.metrics == nil {
		return
	}
	if err != nil {
		kind := string(jt808.KindOf(err))
		if kind == "" {
			kind = "payload"
		}
		p.metrics.DecodeTotal.WithLabelValues(kind, "").Inc()
		return
	}
	p.metrics.DecodeTotal.WithLabelValues("ok", f.MessageIDHex()).Inc()
	if f.Location == nil {
		return
	}
	for _, it := range f.Location.Extras.Items {
		p.metrics.ExtraTotal.WithLabelValues(it.TagHex()).Inc()
	}
	if _, ok := f.Location.Extras.Truncated(); ok {
		p.metrics.TruncatedTotal.Inc()
	}
	for field := range f.FieldErrors() {
		p.metrics.FieldErrorTotal.WithLabelValues(field).Inc()
	}
}
