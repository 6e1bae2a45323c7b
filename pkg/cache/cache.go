package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheManager 查询响应缓存：本地内存优先，Redis兜底
// Redis 不可用时退化为纯本地缓存
type CacheManager struct {
	redis *redis.Client
	local *localCache
}

type localCache struct {
	data map[string]*cacheItem
	mu   sync.RWMutex
}

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// NewCacheManager 创建缓存管理器，redisClient 可为nil
func NewCacheManager(redisClient *redis.Client) *CacheManager {
	cm := &CacheManager{
		redis: redisClient,
		local: &localCache{data: make(map[string]*cacheItem)},
	}

	go cm.cleanupLocalCache()
	return cm
}

// Get 获取缓存值，优先本地缓存，然后Redis
func (cm *CacheManager) Get(ctx context.Context, key string, dest interface{}) error {
	if value, found := cm.getFromLocal(key); found {
		return json.Unmarshal(value, dest)
	}

	if cm.redis != nil {
		data, err := cm.redis.Get(ctx, key).Bytes()
		if err == nil {
			// 回填本地，较短TTL
			cm.setToLocal(key, data, time.Minute)
			return json.Unmarshal(data, dest)
		}
	}

	return fmt.Errorf("cache miss")
}

// Set 设置缓存值，同时写本地和Redis
func (cm *CacheManager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	localTTL := ttl
	if localTTL > 10*time.Minute {
		localTTL = 10 * time.Minute
	}
	cm.setToLocal(key, data, localTTL)

	if cm.redis != nil {
		return cm.redis.Set(ctx, key, data, ttl).Err()
	}
	return nil
}

// InvalidatePrefix 删除某前缀下的全部缓存键
// 同步落库后看板响应缓存立即失效，不等TTL自然过期
func (cm *CacheManager) InvalidatePrefix(ctx context.Context, prefix string) {
	cm.local.mu.Lock()
	for key := range cm.local.data {
		if strings.HasPrefix(key, prefix) {
			delete(cm.local.data, key)
		}
	}
	cm.local.mu.Unlock()

	if cm.redis != nil {
		iter := cm.redis.Scan(ctx, 0, prefix+"*", 0).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if len(keys) > 0 {
			cm.redis.Del(ctx, keys...)
		}
	}
}

func (cm *CacheManager) getFromLocal(key string) ([]byte, bool) {
	cm.local.mu.RLock()
	defer cm.local.mu.RUnlock()

	item, exists := cm.local.data[key]
	if !exists || time.Now().After(item.expiresAt) {
		return nil, false
	}
	return item.value, true
}

func (cm *CacheManager) setToLocal(key string, value []byte, ttl time.Duration) {
	cm.local.mu.Lock()
	defer cm.local.mu.Unlock()

	cm.local.data[key] = &cacheItem{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// cleanupLocalCache 周期清理过期的本地缓存项
func (cm *CacheManager) cleanupLocalCache() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		cm.local.mu.Lock()
		for key, item := range cm.local.data {
			if now.After(item.expiresAt) {
				delete(cm.local.data, key)
			}
		}
		cm.local.mu.Unlock()
	}
}
