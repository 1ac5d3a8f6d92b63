package metrics

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.skillRequestsTotal)
	assert.NotNil(t, collector.forwardsTotal)
	assert.NotNil(t, collector.stateFlushesTotal)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordHTTPRequest("GET", "/health", 200, 100*time.Millisecond, 1024, 2048)
	collector.RecordHTTPRequest("GET", "/health", 200, 50*time.Millisecond, 512, 1024)

	assert.Equal(t, float64(2), testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/health", "2xx")))
}

func TestCollector_RecordSkillRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordSkillRequest("POST", "/activities/{activityId}", 200, time.Millisecond)
	collector.RecordSkillRequest("POST", "unmatched", 404, time.Millisecond)
	collector.RecordControlEvent("tokens/request", "missing_callback")

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.skillRequestsTotal.WithLabelValues("POST", "/activities/{activityId}", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.skillRequestsTotal.WithLabelValues("POST", "unmatched", "404")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.controlEventsTotal.WithLabelValues("tokens/request", "missing_callback")))
}

func TestCollector_RecordForward(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordForward("echo", 200, 10*time.Millisecond)
	collector.RecordForward("echo", 503, 10*time.Millisecond)
	collector.RecordForward("echo", 0, 10*time.Millisecond)
	collector.RecordDialogTransition("echo", "idle", "active")

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.forwardsTotal.WithLabelValues("echo", "2xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.forwardsTotal.WithLabelValues("echo", "5xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.forwardsTotal.WithLabelValues("echo", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.dialogTransition.WithLabelValues("echo", "idle", "active")))
}

func TestCollector_StateAndStreams(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordStateFlush("redis", nil)
	collector.RecordStateFlush("redis", errors.New("boom"))
	collector.RecordStateOperation("redis", "write", time.Millisecond)
	collector.StreamConnected("server")
	collector.StreamConnected("server")
	collector.StreamDisconnected("server")
	collector.RecordDBConnections("sqlite", 3, 1)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.stateFlushesTotal.WithLabelValues("redis", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.stateFlushesTotal.WithLabelValues("redis", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.streamConnections.WithLabelValues("server")))
	assert.Equal(t, float64(3), testutil.ToFloat64(collector.dbConnectionsOpen.WithLabelValues("sqlite")))
	assert.Greater(t, testutil.CollectAndCount(collector.stateOpDuration), 0)
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordHTTPRequest("GET", "/", 200, 0, 0, 0)
		c.RecordSkillRequest("POST", "/", 200, 0)
		c.RecordControlEvent("handoff", "ok")
		c.RecordForward("s", 200, 0)
		c.RecordDialogTransition("s", "a", "b")
		c.RecordStateFlush("memory", nil)
		c.RecordStateOperation("memory", "read", 0)
		c.StreamConnected("client")
		c.StreamDisconnected("client")
		c.RecordDBConnections("db", 1, 1)
	})
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
		{100, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusCode(tt.code))
		})
	}
}
