package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 自定义业务指标
type AppMetrics struct {
	FramesReceived  *prometheus.CounterVec // labels: source
	DecodeTotal     *prometheus.CounterVec // labels: result=ok|<error kind>, msg_id
	ExtraTotal      *prometheus.CounterVec // labels: tag
	TruncatedTotal  prometheus.Counter
	FieldErrorTotal *prometheus.CounterVec // labels: field
	DuplicateTotal  prometheus.Counter
	DroppedTotal    prometheus.Counter     // 队列满丢弃
	SinkErrorTotal  *prometheus.CounterVec // labels: sink
	ForwardTotal    *prometheus.CounterVec // labels: result=ok|error|rejected
	ForwardDuration prometheus.Histogram
	QueueDepth      prometheus.Gauge
	LiveClients     prometheus.Gauge
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frames_received_total",
			Help: "Frames received from pub/sub sources.",
		}, []string{"source"}),
		DecodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frame_decode_total",
			Help: "Frame decode attempts by result and message id.",
		}, []string{"result", "msg_id"}),
		ExtraTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frame_extra_total",
			Help: "Decoded location extra items by tag.",
		}, []string{"tag"}),
		TruncatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frame_truncated_total",
			Help: "Frames whose extra list ended with a truncated item.",
		}),
		FieldErrorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frame_field_error_total",
			Help: "Non-fatal field level decode errors.",
		}, []string{"field"}),
		DuplicateTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frame_duplicate_total",
			Help: "Frames skipped as duplicates.",
		}),
		DroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_dropped_total",
			Help: "Messages dropped because the ingest queue was full.",
		}),
		SinkErrorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sink_error_total",
			Help: "Sink write failures by sink.",
		}, []string{"sink"}),
		ForwardTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forward_total",
			Help: "Records forwarded to the downstream CRM by result.",
		}, []string{"result"}),
		ForwardDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "forward_duration_seconds",
			Help:    "Duration of forwarding calls in seconds.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_queue_depth",
			Help: "Messages waiting in the ingest queue.",
		}),
		LiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "livefeed_clients",
			Help: "Connected websocket live feed clients.",
		}),
	}
	reg.MustRegister(
		m.FramesReceived, m.DecodeTotal, m.ExtraTotal, m.TruncatedTotal, m.FieldErrorTotal,
		m.DuplicateTotal, m.DroppedTotal, m.SinkErrorTotal, m.ForwardTotal, m.ForwardDuration,
		m.QueueDepth, m.LiveClients,
	)
	return m
}
