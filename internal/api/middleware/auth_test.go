package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAPIKeyAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := AuthConfig{Enabled: true, APIKeys: []string{"sk_live_0123456789"}}

	tests := []struct {
		name   string
		cfg    AuthConfig
		header map[string]string
		want   int
	}{
		{"未启用认证", AuthConfig{}, nil, http.StatusOK},
		{"缺少密钥", cfg, nil, http.StatusUnauthorized},
		{"X-API-Key 有效", cfg, map[string]string{"X-API-Key": "sk_live_0123456789"}, http.StatusOK},
		{"Bearer 有效", cfg, map[string]string{"Authorization": "Bearer sk_live_0123456789"}, http.StatusOK},
		{"密钥无效", cfg, map[string]string{"X-API-Key": "wrong"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(APIKeyAuth(tt.cfg, nil))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "sk_l****6789", maskAPIKey("sk_live_0123456789"))
}
