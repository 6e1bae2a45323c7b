package redis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"pos-insight/pkg/config"

	"github.com/redis/go-redis/v9"
)

var (
	rdb         *redis.Client
	initOnce    sync.Once
	initialized bool
	initErr     error
	ErrNil      = errors.New("redis: nil")
)

// InitRedis 初始化 Redis 客户端
// Redis 只承担同步锁与响应缓存，连不上不阻塞启动
func InitRedis(cfg config.RedisConfig) error {
	initOnce.Do(func() {
		log.Printf("Initializing Redis client with address: %s, DB: %d", cfg.Addr, cfg.DB)

		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			PoolSize:     cfg.PoolSize,
		})

		// 测试连接
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := rdb.Ping(ctx).Err(); err != nil {
			initErr = fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
			log.Printf("WARNING: %v (同步锁与响应缓存降级)", initErr)
			return
		}

		initialized = true
		log.Printf("Successfully connected to Redis at %s, DB: %d", cfg.Addr, cfg.DB)
	})

	return initErr
}

// GetClient 获取 Redis 客户端实例，未连接成功时返回 nil
func GetClient() *redis.Client {
	if !initialized {
		return nil
	}
	return rdb
}

// IsConnected 检查 Redis 是否已连接
func IsConnected() bool {
	if rdb == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return rdb.Ping(ctx).Err() == nil
}

// CloseRedis 关闭 Redis 连接
func CloseRedis() {
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}
}
