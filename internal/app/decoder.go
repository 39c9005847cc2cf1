package app

import (
	"fmt"
	"time"

	cfgpkg "github.com/taoyao-code/gps-gateway/internal/config"
	"github.com/taoyao-code/gps-gateway/internal/protocol/jt808"
)

// NewDecoder 按协议配置创建解码器
func NewDecoder(cfg cfgpkg.ProtocolConfig) (*jt808.Decoder, error) {
	rev, err := jt808.ParseRevision(cfg.Revision)
	if err != nil {
		return nil, err
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
		}
	}
	return jt808.NewDecoder(rev, loc), nil
}
