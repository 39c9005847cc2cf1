package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	cfgpkg "github.com/taoyao-code/gps-gateway/internal/config"
	"github.com/taoyao-code/gps-gateway/internal/logging"
)

// FileSink 追加写原始十六进制日志与解析结果日志（每行一个 JSON）
type FileSink struct {
	mu     sync.Mutex
	raw    io.WriteCloser
	parsed io.WriteCloser
}

// NewFileSink 使用给定写入器创建
func NewFileSink(raw, parsed io.WriteCloser) *FileSink {
	return &FileSink{raw: raw, parsed: parsed}
}

// NewFileSinkFromConfig 创建基于 lumberjack 滚动文件的 FileSink
func NewFileSinkFromConfig(cfg cfgpkg.SinkConfig) *FileSink {
	return NewFileSink(logging.NewRotatingWriter(cfg.Raw), logging.NewRotatingWriter(cfg.Parsed))
}

// Name 下游名称
func (s *FileSink) Name() string { return "file" }

// Write 写入一条记录；解码失败时解析日志中记录错误类型
func (s *FileSink) Write(_ context.Context, rec Record) error {
	line, err := json.Marshal(rec.Entry())
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.Message.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.raw, rec.Hex+"\n"); err != nil {
		return fmt.Errorf("write raw log: %w", err)
	}
	if _, err := s.parsed.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write parsed log: %w", err)
	}
	return nil
}

// Close 关闭底层文件
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.raw.Close(), s.parsed.Close())
}
