package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/gps-gateway/internal/metrics"
	"github.com/taoyao-code/gps-gateway/internal/protocol/jt808"
	"github.com/taoyao-code/gps-gateway/internal/sink"
	"github.com/taoyao-code/gps-gateway/internal/transport"
)

const (
	heartbeatHex = "7E000200000138001380000007007E"
	truncatedHex = "7E020000230138001380000007000000000000000202625A0002625A00000A006400B4230415231600310105F80A0102007E"
)

type recordingSink struct {
	name string
	err  error

	mu   sync.Mutex
	recs []sink.Record
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(_ context.Context, rec sink.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return s.err
}

func (s *recordingSink) records() []sink.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sink.Record(nil), s.recs...)
}

type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (d *memDeduper) Seen(_ context.Context, h string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	dup := d.seen[h]
	d.seen[h] = true
	return dup, nil
}

func hexMsg(source, h string) transport.Message {
	return transport.NewMessage(source, "gps", []byte(h))
}

func TestPipeline_ProcessFansOutToAllSinks(t *testing.T) {
	failing := &recordingSink{name: "broken", err: errors.New("disk full")}
	after := &recordingSink{name: "after"}
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	p := New(Options{
		Sinks:   []sink.Sink{failing, after},
		Formats: map[string]string{"redis": transport.PayloadHex},
		Metrics: m,
	})

	rec, ok := p.Process(context.Background(), hexMsg("redis", heartbeatHex))
	require.True(t, ok)
	require.NoError(t, rec.Err)
	assert.Equal(t, uint16(0x0002), rec.Frame.Header.MessageID)

	assert.Len(t, failing.records(), 1)
	assert.Len(t, after.records(), 1, "前一个下游失败不影响后续下游")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkErrorTotal.WithLabelValues("broken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeTotal.WithLabelValues("ok", "0002")))
}

func TestPipeline_BinaryPayloadAndDecodeFailure(t *testing.T) {
	out := &recordingSink{name: "out"}
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	p := New(Options{Sinks: []sink.Sink{out}, Metrics: m})

	rec, ok := p.Process(context.Background(), transport.NewMessage("mqtt", "gps", []byte{0x7e, 0x02, 0x00}))
	require.True(t, ok)
	assert.Equal(t, "7E0200", rec.Hex)
	assert.ErrorIs(t, rec.Err, jt808.ErrTooShort)
	assert.Nil(t, rec.Frame)
	require.Len(t, out.records(), 1, "解码失败的帧同样写入下游")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeTotal.WithLabelValues("TooShort", "")))
}

func TestPipeline_TruncatedExtrasCounted(t *testing.T) {
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	p := New(Options{Formats: map[string]string{"redis": transport.PayloadHex}, Metrics: m})

	rec, ok := p.Process(context.Background(), hexMsg("redis", truncatedHex))
	require.True(t, ok)
	require.NoError(t, rec.Err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TruncatedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtraTotal.WithLabelValues("31")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtraTotal.WithLabelValues("F8")))
}

func TestPipeline_Dedup(t *testing.T) {
	out := &recordingSink{name: "out"}
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	p := New(Options{
		Sinks:   []sink.Sink{out},
		Deduper: &memDeduper{},
		Formats: map[string]string{"redis": transport.PayloadHex},
		Metrics: m,
	})

	_, ok := p.Process(context.Background(), hexMsg("redis", heartbeatHex))
	assert.True(t, ok)
	_, ok = p.Process(context.Background(), hexMsg("redis", heartbeatHex))
	assert.False(t, ok)
	assert.Len(t, out.records(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DuplicateTotal))

	t.Run("去重不可用时照常处理", func(t *testing.T) {
		out := &recordingSink{name: "out"}
		p := New(Options{
			Sinks:   []sink.Sink{out},
			Deduper: &memDeduper{err: errors.New("redis down")},
			Formats: map[string]string{"redis": transport.PayloadHex},
		})
		_, ok := p.Process(context.Background(), hexMsg("redis", heartbeatHex))
		assert.True(t, ok)
		assert.Len(t, out.records(), 1)
	})
}

func TestPipeline_HandleDropsWhenFull(t *testing.T) {
	m := metrics.NewAppMetrics(prometheus.NewRegistry())
	p := New(Options{QueueSize: 1, Metrics: m})

	assert.True(t, p.Handle(hexMsg("mqtt", heartbeatHex)))
	assert.False(t, p.Handle(hexMsg("mqtt", heartbeatHex)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesReceived.WithLabelValues("mqtt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueDepth))
}

func TestPipeline_RunDrainsOnShutdown(t *testing.T) {
	out := &recordingSink{name: "out"}
	p := New(Options{
		Sinks:     []sink.Sink{out},
		Formats:   map[string]string{"redis": transport.PayloadHex},
		Workers:   2,
		QueueSize: 16,
	})
	for i := 0; i < 10; i++ {
		require.True(t, p.Handle(hexMsg("redis", heartbeatHex)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}
	assert.Len(t, out.records(), 10)
}
