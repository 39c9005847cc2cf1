package transport

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 负载格式
const (
	PayloadBinary = "binary" // 原始二进制帧，需转十六进制
	PayloadHex    = "hex"    // 已是十六进制文本
)

// Message 从发布订阅来源收到的一条消息
type Message struct {
	ID         string
	Source     string
	Topic      string
	Payload    []byte
	ReceivedAt time.Time
}

// NewMessage 创建消息并分配关联 ID
func NewMessage(source, topic string, payload []byte) Message {
	return Message{
		ID:         uuid.NewString(),
		Source:     source,
		Topic:      topic,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}
}

// Hex 按负载格式返回帧的十六进制文本
func (m Message) Hex(format string) (string, error) {
	switch format {
	case PayloadBinary, "":
		return strings.ToUpper(hex.EncodeToString(m.Payload)), nil
	case PayloadHex:
		return strings.TrimSpace(string(m.Payload)), nil
	default:
		return "", fmt.Errorf("unknown payload format %q", format)
	}
}

// Handler 消息回调，需尽快返回
type Handler func(Message)

// Source 发布订阅消息来源
type Source interface {
	Name() string
	// Run 阻塞直到 ctx 结束或来源不可恢复地失败
	Run(ctx context.Context, h Handler) error
}
