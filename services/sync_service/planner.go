package sync_service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"pos-insight/cachestore"
	"pos-insight/model/metrics_model"
	"pos-insight/pkg/config"
	"pos-insight/pkg/monitoring"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	syncLockKey = "pos-insight:sync:lock"
	syncLockTTL = 10 * time.Minute
	dateLayout  = "2006-01-02"
)

// ErrSyncLocked 已有同步在执行中
var ErrSyncLocked = errors.New("another sync run is in progress")

// SyncService 过期检测与同步规划
// 对照 sync_metadata 决定哪些自然日需要重新聚合，驱动订单源聚合
// 并把结果写回缓存库。今天永远重同步（当天数据必然不完整）。
type SyncService struct {
	cache  *cachestore.Store
	source OrderSource
	rdb    *redis.Client // 可为nil，降级为无锁执行
	cfg    config.SyncConfig
	now    func() time.Time
}

// SyncResult 一次同步的结果
type SyncResult struct {
	SyncedDates []string               `json:"synced_dates"`
	Stats       *cachestore.CacheStats `json:"stats"`
}

// ForceSyncResult 强制单日同步的结果
type ForceSyncResult struct {
	Before *cachestore.CacheStats `json:"before"`
	After  *cachestore.CacheStats `json:"after"`
	Synced DateSyncCounts         `json:"synced"`
}

// DateSyncCounts 单日同步落库的行数
type DateSyncCounts struct {
	StoreRecords int `json:"store_records"`
	MenuRecords  int `json:"menu_records"`
	HourlyRecord int `json:"hourly_records"`
}

// NewSyncService 创建同步服务
func NewSyncService(cache *cachestore.Store, source OrderSource, rdb *redis.Client, cfg config.SyncConfig) *SyncService {
	return &SyncService{
		cache:  cache,
		source: source,
		rdb:    rdb,
		cfg:    cfg,
		now:    time.Now,
	}
}

// SmartSync 增量同步
// 候选窗口 [today-N, today]：今天无条件重同步，其余日期只在
// sync_metadata 缺失时同步；窗口外的日期不碰。
func (s *SyncService) SmartSync(ctx context.Context) (*SyncResult, error) {
	runID := uuid.NewString()
	start := time.Now()

	release, err := s.acquireLock(ctx, runID)
	if err != nil {
		return nil, err
	}
	defer release()

	today := s.now().Format(dateLayout)
	// 窗口为 [today-N, today]，共 N+1 个自然日
	candidates := s.windowDates(s.cfg.LookbackDays+1, today)

	var targets []string
	for _, date := range candidates {
		if date == today {
			targets = append(targets, date)
			continue
		}
		synced, err := s.cache.IsDateSynced(date)
		if err != nil {
			return nil, fmt.Errorf("read sync metadata: %w", err)
		}
		if !synced {
			targets = append(targets, date)
		}
	}

	log.Printf("[sync %s] 增量同步: 窗口%d天, 待同步 %d/%d 天", runID, s.cfg.LookbackDays, len(targets), len(candidates))

	if len(targets) == 0 {
		stats, err := s.refreshStats()
		if err != nil {
			return nil, err
		}
		monitoring.RecordSyncRun("smart", "ok", time.Since(start), 0)
		return &SyncResult{SyncedDates: []string{}, Stats: stats}, nil
	}

	synced, err := s.syncDates(ctx, runID, targets)
	if err != nil {
		monitoring.RecordSyncRun("smart", "error", time.Since(start), len(synced))
		return nil, err
	}

	stats, err := s.refreshStats()
	if err != nil {
		return nil, err
	}
	monitoring.RecordSyncRun("smart", "ok", time.Since(start), len(synced))
	return &SyncResult{SyncedDates: synced, Stats: stats}, nil
}

// FullSync 无视元数据，重聚合最近 days 天
// 冷启动引导用；窗口有上限，控制受限部署的成本
func (s *SyncService) FullSync(ctx context.Context, days int) (*SyncResult, error) {
	runID := uuid.NewString()
	start := time.Now()

	if days <= 0 {
		days = s.cfg.FullSyncDays
	}
	if days > s.cfg.MaxSyncDays {
		days = s.cfg.MaxSyncDays
	}

	release, err := s.acquireLock(ctx, runID)
	if err != nil {
		return nil, err
	}
	defer release()

	today := s.now().Format(dateLayout)
	targets := s.windowDates(days, today)

	log.Printf("[sync %s] 全量同步: %d 天 (%s ~ %s)", runID, len(targets), targets[0], today)

	synced, err := s.syncDates(ctx, runID, targets)
	if err != nil {
		monitoring.RecordSyncRun("full", "error", time.Since(start), len(synced))
		return nil, err
	}

	stats, err := s.refreshStats()
	if err != nil {
		return nil, err
	}
	monitoring.RecordSyncRun("full", "ok", time.Since(start), len(synced))
	return &SyncResult{SyncedDates: synced, Stats: stats}, nil
}

// ForceSyncDate 无视元数据重同步一个指定日期
// 运维纠偏入口：先清掉该日旧行再重聚合，源里消失的订单不会残留
func (s *SyncService) ForceSyncDate(ctx context.Context, date string) (*ForceSyncResult, error) {
	runID := uuid.NewString()
	start := time.Now()

	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	release, err := s.acquireLock(ctx, runID)
	if err != nil {
		return nil, err
	}
	defer release()

	before, err := s.cache.GetCacheStats()
	if err != nil {
		return nil, err
	}

	// 先拉源、先聚合；源不可达时缓存和元数据一行都不动
	dailyStore, menu, hourly, err := s.aggregateDate(ctx, runID, date)
	if err != nil {
		monitoring.RecordSyncRun("force", "error", time.Since(start), 0)
		return nil, err
	}

	// 旧行清理、新行写入、元数据标记在同一个事务里，失败整体回滚
	if err := s.cache.ReplaceDateRows(date, dailyStore, menu, hourly); err != nil {
		monitoring.RecordSyncRun("force", "error", time.Since(start), 0)
		return nil, fmt.Errorf("replace rows for %s: %w", date, err)
	}
	counts := DateSyncCounts{
		StoreRecords: len(dailyStore),
		MenuRecords:  len(menu),
		HourlyRecord: len(hourly),
	}
	log.Printf("[sync %s] %s: 强制重同步 -> 门店行%d 菜单行%d 小时行%d", runID, date, counts.StoreRecords, counts.MenuRecords, counts.HourlyRecord)

	after, err := s.refreshStats()
	if err != nil {
		return nil, err
	}
	monitoring.RecordSyncRun("force", "ok", time.Since(start), 1)
	return &ForceSyncResult{Before: before, After: after, Synced: counts}, nil
}

// syncDates 逐日同步，每天聚合+三表落库+标记完成
// 某天失败时已完成的日期保留标记，失败当天不标记，下次重试
func (s *SyncService) syncDates(ctx context.Context, runID string, dates []string) ([]string, error) {
	synced := make([]string, 0, len(dates))
	for _, date := range dates {
		if _, err := s.syncOneDate(ctx, runID, date); err != nil {
			return synced, fmt.Errorf("sync %s: %w", date, err)
		}
		synced = append(synced, date)
	}
	return synced, nil
}

// aggregateDate 拉取并折叠单个自然日，纯内存，不碰缓存库
func (s *SyncService) aggregateDate(ctx context.Context, runID, date string) ([]metrics_model.DailyStoreMetric, []metrics_model.DailyStoreMenuMetric, []metrics_model.HourlyStoreMetric, error) {
	orders, err := s.source.FetchOrders(ctx, date, date)
	if err != nil {
		return nil, nil, nil, err
	}

	now := s.now()
	dailyStore := BuildDailyStoreMetrics(orders, s.cfg.AnomalyCeiling, now)
	menu, parseErrors := BuildMenuMetrics(orders, s.cfg.AnomalyCeiling, now)
	hourly := BuildHourlyMetrics(orders, s.cfg.AnomalyCeiling, now)

	if parseErrors > 0 {
		log.Printf("[sync %s] %s: %d 笔订单行项目解析失败，跳过菜单统计", runID, date, parseErrors)
		monitoring.AddLineItemParseErrors(parseErrors)
	}
	return dailyStore, menu, hourly, nil
}

// syncOneDate 聚合并落库单个自然日
// 三张表全部成功落库之后才写 sync_metadata，顺序不可调换
func (s *SyncService) syncOneDate(ctx context.Context, runID, date string) (DateSyncCounts, error) {
	var counts DateSyncCounts

	dailyStore, menu, hourly, err := s.aggregateDate(ctx, runID, date)
	if err != nil {
		return counts, err
	}

	if err := s.cache.UpsertDailyStore(dailyStore); err != nil {
		return counts, fmt.Errorf("upsert daily store: %w", err)
	}
	if err := s.cache.UpsertDailyStoreMenu(menu); err != nil {
		return counts, fmt.Errorf("upsert daily menu: %w", err)
	}
	if err := s.cache.UpsertHourlyStore(hourly); err != nil {
		return counts, fmt.Errorf("upsert hourly: %w", err)
	}

	if err := s.cache.MarkDatesSynced([]string{date}); err != nil {
		return counts, fmt.Errorf("mark synced: %w", err)
	}

	counts = DateSyncCounts{
		StoreRecords: len(dailyStore),
		MenuRecords:  len(menu),
		HourlyRecord: len(hourly),
	}
	log.Printf("[sync %s] %s: 门店行%d 菜单行%d 小时行%d", runID, date, counts.StoreRecords, counts.MenuRecords, counts.HourlyRecord)
	return counts, nil
}

// windowDates [today-(days-1), today] 的自然日列表，升序
func (s *SyncService) windowDates(days int, today string) []string {
	end, _ := time.Parse(dateLayout, today)
	dates := make([]string, 0, days)
	for i := days - 1; i >= 0; i-- {
		dates = append(dates, end.AddDate(0, 0, -i).Format(dateLayout))
	}
	return dates
}

// acquireLock 用Redis SETNX挡住并发刷新，Redis不可用时降级放行
func (s *SyncService) acquireLock(ctx context.Context, runID string) (func(), error) {
	if s.rdb == nil {
		return func() {}, nil
	}

	ok, err := s.rdb.SetNX(ctx, syncLockKey, runID, syncLockTTL).Result()
	if err != nil {
		log.Printf("[sync %s] Redis 不可用，跳过同步锁: %v", runID, err)
		return func() {}, nil
	}
	if !ok {
		return nil, ErrSyncLocked
	}

	return func() {
		// 比较和删除必须是一步：GET+DEL分开时，TTL边界上会误删
		// 另一次运行刚拿到的锁
		if err := unlockScript.Run(context.Background(), s.rdb, []string{syncLockKey}, runID).Err(); err != nil {
			log.Printf("[sync %s] 释放同步锁失败: %v", runID, err)
		}
	}, nil
}

// unlockScript 只有锁持有者能删除锁
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// refreshStats 查询缓存统计并同步到监控指标
func (s *SyncService) refreshStats() (*cachestore.CacheStats, error) {
	stats, err := s.cache.GetCacheStats()
	if err != nil {
		return nil, err
	}
	monitoring.UpdateCacheRows(stats.DailyStoreRecords, stats.DailyMenuRecords, stats.HourlyRecords)
	return stats, nil
}

// GetCacheStats 暴露给路由层的缓存统计
func (s *SyncService) GetCacheStats() (*cachestore.CacheStats, error) {
	return s.cache.GetCacheStats()
}
