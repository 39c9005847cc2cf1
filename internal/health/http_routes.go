package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterHTTPRoutes 注册详细健康报告路由 GET /health
func RegisterHTTPRoutes(r gin.IRouter, agg *Aggregator) {
	r.GET("/health", func(c *gin.Context) {
		report := agg.Report(c.Request.Context())
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	})
}
