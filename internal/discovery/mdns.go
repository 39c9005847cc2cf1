// Package discovery 在局域网内通过 mDNS 发布网关服务
package discovery

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/grandcat/zeroconf"

	cfgpkg "github.com/taoyao-code/gps-gateway/internal/config"
)

// ServiceType 发布的服务类型，域为 local.
const ServiceType = "_jt808-gateway._tcp"

// Info 写入 TXT 记录的元数据
type Info struct {
	Revision string
	Version  string
}

// Advertise 注册 mDNS 服务并返回清理函数；未启用时为空操作
func Advertise(ctx context.Context, cfg cfgpkg.MDNSConfig, port int, info Info) (func(), error) {
	if !cfg.Enable {
		return func() {}, nil
	}
	svc, err := zeroconf.Register(instanceName(cfg.Instance), ServiceType, "local.", port, txtRecords(info), nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}

	var once sync.Once
	stop := func() { once.Do(svc.Shutdown) }
	go func() {
		<-ctx.Done()
		stop()
	}()
	return stop, nil
}

func instanceName(configured string) string {
	if configured != "" {
		return configured
	}
	host, _ := os.Hostname()
	if host == "" {
		host = "unknown"
	}
	return "gps-gateway-" + host
}

func txtRecords(info Info) []string {
	txt := []string{"proto=jt808"}
	if info.Revision != "" {
		txt = append(txt, "revision="+info.Revision)
	}
	if info.Version != "" {
		txt = append(txt, "version="+info.Version)
	}
	return txt
}
