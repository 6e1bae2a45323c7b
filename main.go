package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-insight/api"
	"pos-insight/cachestore"
	"pos-insight/controllers/admin"
	"pos-insight/middleware"
	"pos-insight/mongodb"
	"pos-insight/pkg/cache"
	"pos-insight/pkg/config"
	"pos-insight/pkg/jwt"
	"pos-insight/pkg/monitoring"
	"pos-insight/redis"
	"pos-insight/router"
	"pos-insight/services/dashboard_service"
	"pos-insight/services/sync_service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 构建时注入的变量
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// bootstrapAdapter 把同步服务适配成看板层的冷启动引导口
type bootstrapAdapter struct {
	sync *sync_service.SyncService
}

func (b bootstrapAdapter) FullSync(ctx context.Context, days int) (*dashboard_service.SyncOutcome, error) {
	result, err := b.sync.FullSync(ctx, days)
	if err != nil {
		return nil, err
	}
	return &dashboard_service.SyncOutcome{
		SyncedDates: result.SyncedDates,
		Stats:       result.Stats,
	}, nil
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-version", "--version", "-v":
			fmt.Printf("POS Insight\n")
			fmt.Printf("Version: %s\n", Version)
			fmt.Printf("Build Time: %s\n", BuildTime)
			fmt.Printf("Git Commit: %s\n", GitCommit)
			return
		}
	}

	// 初始化配置
	if err := config.InitConfig(); err != nil {
		log.Fatalf("配置初始化失败: %v", err)
	}
	cfg := config.GetConfig()

	log.Printf("启动 pos-insight (端口: %s)...", cfg.Server.Port)

	// 打开本地缓存库（组合根持有句柄，注入各服务）
	store, err := cachestore.Open(cfg.Cache)
	if err != nil {
		log.Fatalf("缓存库初始化失败: %v", err)
	}

	// 连接订单源数据库
	source, err := mongodb.Connect(cfg.MongoDB)
	if err != nil {
		log.Fatalf("订单源连接失败: %v", err)
	}

	// 初始化 Redis（失败时同步锁与响应缓存降级）
	_ = redis.InitRedis(cfg.Redis)
	rdb := redis.GetClient()

	// 组装服务
	orderSource := sync_service.NewMongoOrderSource(source)
	syncService := sync_service.NewSyncService(store, orderSource, rdb, cfg.Sync)

	respCache := cache.NewCacheManager(rdb)
	dashboardService := dashboard_service.NewDashboardService(
		store,
		bootstrapAdapter{sync: syncService},
		respCache,
		cfg.Sync.AutoRefresh,
	)

	jwtManager := jwt.NewManager(cfg.Auth)

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)
	app := gin.New()

	// 全局中间件
	app.Use(middleware.Recovery())
	app.Use(middleware.ErrorHandler())
	app.Use(middleware.Performance())
	app.Use(middleware.Cors())
	app.Use(monitoring.PrometheusMiddleware())

	// 监控指标端点
	app.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 健康检查端点
	app.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		sourceStatus := "healthy"
		var sourceOrders, sourceStores int64
		if err := source.Ping(ctx); err != nil {
			sourceStatus = "unreachable"
		} else {
			sourceOrders, _ = orderSource.EstimatedOrderCount(ctx)
			sourceStores, _ = orderSource.EstimatedStoreCount(ctx)
		}

		stats, _ := store.GetCacheStats()
		c.JSON(http.StatusOK, gin.H{
			"service":       "pos-insight",
			"status":        "healthy",
			"timestamp":     time.Now(),
			"source":        sourceStatus,
			"source_orders": sourceOrders,
			"source_stores": sourceStores,
			"redis":         redis.IsConnected(),
			"cache":         stats,
		})
	})

	router.Init(app, router.Deps{
		Auth:      api.NewAuth(cfg.Auth, jwtManager),
		Sync:      admin.NewSyncController(syncService, respCache),
		Dashboard: admin.NewDashboardController(dashboardService),
		JWT:       jwtManager,
		SyncToken: cfg.Sync.SyncToken,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("服务器启动在端口 :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("服务器强制关闭: %v", err)
	}

	if err := source.Close(ctx); err != nil {
		log.Printf("订单源断开失败: %v", err)
	}
	if err := store.Close(); err != nil {
		log.Printf("缓存库关闭失败: %v", err)
	}
	redis.CloseRedis()

	log.Printf("服务器已安全关闭")
}
