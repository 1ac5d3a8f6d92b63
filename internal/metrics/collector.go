// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
//
// 所有 Record* 方法对 nil 接收者安全，未配置指标的组件可以直接传 nil。
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 技能端入站请求指标
	skillRequestsTotal   *prometheus.CounterVec
	skillRequestDuration *prometheus.HistogramVec
	controlEventsTotal   *prometheus.CounterVec

	// 根端转发指标
	forwardsTotal    *prometheus.CounterVec
	forwardDuration  *prometheus.HistogramVec
	dialogTransition *prometheus.CounterVec

	// 会话状态指标
	stateFlushesTotal *prometheus.CounterVec
	stateOpDuration   *prometheus.HistogramVec

	// 流式连接指标
	streamConnections *prometheus.GaugeVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.httpRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	c.httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// 技能端入站请求指标
	c.skillRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skill_requests_total",
			Help:      "Total number of inbound activity requests handled by the skill",
		},
		[]string{"method", "route", "status"},
	)

	c.skillRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "skill_request_duration_seconds",
			Help:      "Inbound activity request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	c.controlEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skill_control_events_total",
			Help:      "Total number of control activities dispatched to callbacks",
		},
		[]string{"kind", "result"},
	)

	// 根端转发指标
	c.forwardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skill_forwards_total",
			Help:      "Total number of activities forwarded to skills",
		},
		[]string{"skill_id", "status"},
	)

	c.forwardDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "skill_forward_duration_seconds",
			Help:      "Skill forward duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"skill_id"},
	)

	c.dialogTransition = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skill_dialog_transitions_total",
			Help:      "Total number of skill engagement state transitions",
		},
		[]string{"skill_id", "from_state", "to_state"},
	)

	// 会话状态指标
	c.stateFlushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_flushes_total",
			Help:      "Total number of conversation state flushes",
		},
		[]string{"backend", "result"},
	)

	c.stateOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "state_operation_duration_seconds",
			Help:      "Conversation state storage operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	c.streamConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_connections_active",
			Help:      "Number of active streaming connections",
		},
		[]string{"side"},
	)

	// 数据库指标
	c.dbConnectionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// =============================================================================
// 🧩 技能请求指标记录
// =============================================================================

// RecordSkillRequest 记录一次入站活动请求；route 为匹配到的模板，未匹配时为 "unmatched"
func (c *Collector) RecordSkillRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.skillRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.skillRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordControlEvent 记录控制事件回调分发结果
func (c *Collector) RecordControlEvent(kind, result string) {
	if c == nil {
		return
	}
	c.controlEventsTotal.WithLabelValues(kind, result).Inc()
}

// =============================================================================
// 🚀 转发指标记录
// =============================================================================

// RecordForward 记录一次向技能的转发；status 为 0 表示传输层失败
func (c *Collector) RecordForward(skillID string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	label := statusCode(status)
	if status == 0 {
		label = "error"
	}
	c.forwardsTotal.WithLabelValues(skillID, label).Inc()
	c.forwardDuration.WithLabelValues(skillID).Observe(duration.Seconds())
}

// RecordDialogTransition 记录技能会话状态转换
func (c *Collector) RecordDialogTransition(skillID, fromState, toState string) {
	if c == nil {
		return
	}
	c.dialogTransition.WithLabelValues(skillID, fromState, toState).Inc()
}

// =============================================================================
// 💾 会话状态指标记录
// =============================================================================

// RecordStateFlush 记录一次会话状态落盘
func (c *Collector) RecordStateFlush(backend string, err error) {
	if c == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	c.stateFlushesTotal.WithLabelValues(backend, result).Inc()
}

// RecordStateOperation 记录存储后端操作耗时
func (c *Collector) RecordStateOperation(backend, operation string, duration time.Duration) {
	if c == nil {
		return
	}
	c.stateOpDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// StreamConnected 记录流式连接建立，side 为 "server" 或 "client"
func (c *Collector) StreamConnected(side string) {
	if c == nil {
		return
	}
	c.streamConnections.WithLabelValues(side).Inc()
}

// StreamDisconnected 记录流式连接关闭
func (c *Collector) StreamDisconnected(side string) {
	if c == nil {
		return
	}
	c.streamConnections.WithLabelValues(side).Dec()
}

// =============================================================================
// 🗄️ 数据库指标记录
// =============================================================================

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	if c == nil {
		return
	}
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
