package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppMetrics_Exposed(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)

	m.DecodeTotal.WithLabelValues("ok", "0200").Inc()
	m.DecodeTotal.WithLabelValues("TooShort", "").Add(2)
	m.ExtraTotal.WithLabelValues("F8").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeTotal.WithLabelValues("ok", "0200")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DecodeTotal.WithLabelValues("TooShort", "")))

	rr := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, `frame_extra_total{tag="F8"} 1`))
	assert.Contains(t, body, "go_goroutines")
}
