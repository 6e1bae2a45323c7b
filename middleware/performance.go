package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// PerformanceConfig 性能监控配置
type PerformanceConfig struct {
	SlowThreshold time.Duration // 慢请求阈值
	SkipPaths     []string      // 跳过监控的路径
}

// DefaultPerformanceConfig 默认性能配置
func DefaultPerformanceConfig() PerformanceConfig {
	return PerformanceConfig{
		SlowThreshold: 500 * time.Millisecond,
		SkipPaths:     []string{"/health", "/metrics", "/favicon.ico"},
	}
}

// Performance 性能监控中间件
func Performance(config ...PerformanceConfig) gin.HandlerFunc {
	cfg := DefaultPerformanceConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	return func(c *gin.Context) {
		for _, path := range cfg.SkipPaths {
			if c.Request.URL.Path == path {
				c.Next()
				return
			}
		}

		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		// 同步接口本身可能跑到分钟级，只记录超阈值的请求
		if latency > cfg.SlowThreshold {
			log.Printf("[SLOW REQUEST] %s %s - Status: %d, Latency: %v",
				method, path, status, latency)
		}

		if gin.Mode() == gin.DebugMode {
			c.Header("X-Response-Time", latency.String())
		}
	}
}
