package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus 指标定义
var (
	// HTTP 请求相关指标
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// 同步相关指标
	syncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "同步执行总数",
		},
		[]string{"mode", "status"},
	)

	syncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "同步耗时分布",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0},
		},
		[]string{"mode"},
	)

	syncedDatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synced_dates_total",
			Help: "已同步自然日累计数",
		},
	)

	// 数据质量指标
	lineItemParseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "line_item_parse_errors_total",
			Help: "行项目JSON解析失败的订单数",
		},
	)

	// 缓存库行数
	cacheRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_table_rows",
			Help: "缓存库各表行数",
		},
		[]string{"table"},
	)
)

// PrometheusMiddleware Gin中间件，用于收集HTTP指标
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

// RecordSyncRun 记录一次同步执行
func RecordSyncRun(mode, status string, duration time.Duration, dates int) {
	syncRunsTotal.WithLabelValues(mode, status).Inc()
	syncDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if dates > 0 {
		syncedDatesTotal.Add(float64(dates))
	}
}

// AddLineItemParseErrors 累计行项目解析失败数
func AddLineItemParseErrors(count int) {
	if count > 0 {
		lineItemParseErrors.Add(float64(count))
	}
}

// UpdateCacheRows 更新缓存库行数指标
func UpdateCacheRows(dailyStore, dailyMenu, hourly int64) {
	cacheRows.WithLabelValues("daily_store_metrics").Set(float64(dailyStore))
	cacheRows.WithLabelValues("daily_store_menu_metrics").Set(float64(dailyMenu))
	cacheRows.WithLabelValues("hourly_store_metrics").Set(float64(hourly))
}
