package dashboard_service

import (
	"context"
	"errors"
	"time"

	"pos-insight/cachestore"
	"pos-insight/model/metrics_model"
	"pos-insight/pkg/cache"
)

// ErrCacheEmpty 缓存为空且未启用自动引导，调用方需显式触发全量同步
var ErrCacheEmpty = errors.New("analytics cache is empty, run a full sync first")

// deniedStoreNames 演示/测试账号，所有看板计算统一排除
// 这是横切过滤规则，不是某个查询的特例
var deniedStoreNames = map[string]bool{
	"Demo Store":     true,
	"Test Store":     true,
	"POS Demo":       true,
	"Internal QA":    true,
	"Staging Outlet": true,
}

// Bootstrapper 冷启动引导能力（由同步服务实现）
type Bootstrapper interface {
	FullSync(ctx context.Context, days int) (*SyncOutcome, error)
}

// SyncOutcome Bootstrapper 返回的最小视图
type SyncOutcome struct {
	SyncedDates []string
	Stats       *cachestore.CacheStats
}

// DashboardService 看板查询层
// 只读缓存库，绝不回源订单库；统计在内存中完成
type DashboardService struct {
	store       *cachestore.Store
	boot        Bootstrapper
	respCache   *cache.CacheManager // 可为nil
	autoRefresh bool
	now         func() time.Time
}

// NewDashboardService 创建看板服务
func NewDashboardService(store *cachestore.Store, boot Bootstrapper, respCache *cache.CacheManager, autoRefresh bool) *DashboardService {
	return &DashboardService{
		store:       store,
		boot:        boot,
		respCache:   respCache,
		autoRefresh: autoRefresh,
		now:         time.Now,
	}
}

// ensureCachePopulated 缓存为空时按配置引导全量同步或直接报错
func (s *DashboardService) ensureCachePopulated(ctx context.Context) error {
	empty, err := s.store.IsEmpty()
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}
	if !s.autoRefresh || s.boot == nil {
		return ErrCacheEmpty
	}
	_, err = s.boot.FullSync(ctx, 0)
	return err
}

// filterDenied 剔除演示/测试门店的日指标行
func filterDenied(rows []metrics_model.DailyStoreMetric) []metrics_model.DailyStoreMetric {
	kept := rows[:0]
	for _, row := range rows {
		if !deniedStoreNames[row.StoreName] {
			kept = append(kept, row)
		}
	}
	return kept
}

// filterDeniedMenu 剔除演示/测试门店的菜单指标行
func filterDeniedMenu(rows []metrics_model.DailyStoreMenuMetric) []metrics_model.DailyStoreMenuMetric {
	kept := rows[:0]
	for _, row := range rows {
		if !deniedStoreNames[row.StoreName] {
			kept = append(kept, row)
		}
	}
	return kept
}

// splitWindow 把 [start, end] 按中点切成前后两半，用于环比
func splitWindow(start, end string) (prevStart, prevEnd, currStart, currEnd string) {
	const layout = "2006-01-02"
	s, err1 := time.Parse(layout, start)
	e, err2 := time.Parse(layout, end)
	if err1 != nil || err2 != nil || e.Before(s) {
		return start, start, end, end
	}

	totalDays := int(e.Sub(s).Hours()/24) + 1
	half := totalDays / 2
	if half == 0 {
		half = 1
	}

	prevStart = start
	prevEnd = s.AddDate(0, 0, half-1).Format(layout)
	currStart = s.AddDate(0, 0, half).Format(layout)
	currEnd = end
	if currStart > currEnd {
		currStart = currEnd
	}
	return
}

// declineRatio 下滑比例，[0,1]；无历史基数时视为没有下滑
func declineRatio(prev, curr float64) float64 {
	if prev <= 0 {
		return 0
	}
	d := (prev - curr) / prev
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

// growthRatio 增长比例；零基数上的增长按100%计
func growthRatio(prev, curr float64) float64 {
	if prev <= 0 {
		if curr > 0 {
			return 1
		}
		return 0
	}
	g := (curr - prev) / prev
	if g < 0 {
		return 0
	}
	return g
}
