package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/gps-gateway/internal/api/middleware"
	"github.com/taoyao-code/gps-gateway/internal/protocol/jt808"
)

// RegisterDecodeRoutes 注册 /api/v1 路由
func RegisterDecodeRoutes(r gin.IRouter, dec *jt808.Decoder, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := NewDecodeHandler(dec, logger)

	v1 := r.Group("/api/v1")
	if authCfg.Enabled {
		v1.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled")
	}

	v1.POST("/decode", handler.Decode)
}
