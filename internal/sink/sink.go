package sink

import (
	"context"
	"time"

	"github.com/taoyao-code/gps-gateway/internal/protocol/jt808"
	"github.com/taoyao-code/gps-gateway/internal/transport"
)

// Record 一条消息的处理结果
// Frame 与 Err 互斥：解码失败时 Frame 为 nil
type Record struct {
	Message transport.Message
	Hex     string
	Frame   *jt808.Frame
	Err     error
}

// Sink 处理结果的下游
type Sink interface {
	Name() string
	Write(ctx context.Context, rec Record) error
}

// Entry 记录的 JSON 表示，文件、实时推送与转发共用
type Entry struct {
	ID          string            `json:"id"`
	Source      string            `json:"source"`
	Topic       string            `json:"topic,omitempty"`
	ReceivedAt  time.Time         `json:"received_at"`
	Hex         string            `json:"hex"`
	Frame       *jt808.Frame      `json:"frame,omitempty"`
	Error       string            `json:"error,omitempty"`
	Kind        jt808.ErrorKind   `json:"kind,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// Entry 转换为 JSON 表示
func (r Record) Entry() Entry {
	e := Entry{
		ID:         r.Message.ID,
		Source:     r.Message.Source,
		Topic:      r.Message.Topic,
		ReceivedAt: r.Message.ReceivedAt,
		Hex:        r.Hex,
		Frame:      r.Frame,
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
		e.Kind = jt808.KindOf(r.Err)
	}
	if r.Frame != nil {
		e.FieldErrors = r.Frame.FieldErrors()
	}
	return e
}
