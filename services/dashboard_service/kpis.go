package dashboard_service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"pos-insight/inout"
)

const kpiCacheTTL = 5 * time.Minute

// GetDashboardKPIs 看板核心指标
// 缓存为空时按配置自动引导全量同步；命中响应缓存时带 cached 标记
func (s *DashboardService) GetDashboardKPIs(ctx context.Context, filter inout.DashboardFilterReq) (*inout.DashboardKPI, error) {
	if err := s.ensureCachePopulated(ctx); err != nil {
		return nil, err
	}

	cacheKey := kpiCacheKey(filter)
	if s.respCache != nil {
		var cached inout.DashboardKPI
		if err := s.respCache.Get(ctx, cacheKey, &cached); err == nil {
			cached.Cached = true
			return &cached, nil
		}
	}

	rows, err := s.store.QueryDailyStore(filter.StartDate, filter.EndDate, filter.StoreIDs)
	if err != nil {
		return nil, err
	}
	rows = filterDenied(rows)

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	kpi := &inout.DashboardKPI{
		TopStores:  []inout.StoreKPI{},
		DailyTrend: []inout.DailyPoint{},
	}

	storeAgg := make(map[string]*inout.StoreKPI)
	dayAgg := make(map[string]*inout.DailyPoint)

	for _, row := range rows {
		kpi.Summary.TotalGMV += row.GMV
		kpi.Summary.TotalPaidAmount += row.PaidAmount
		kpi.Summary.TotalOrders += row.OrderCount

		agg, exists := storeAgg[row.StoreID]
		if !exists {
			agg = &inout.StoreKPI{StoreID: row.StoreID, StoreName: row.StoreName}
			storeAgg[row.StoreID] = agg
		}
		agg.GMV += row.GMV
		agg.PaidAmount += row.PaidAmount
		agg.OrderCount += row.OrderCount

		day, exists := dayAgg[row.Date]
		if !exists {
			day = &inout.DailyPoint{Date: row.Date}
			dayAgg[row.Date] = day
		}
		day.GMV += row.GMV
		day.PaidAmount += row.PaidAmount
		day.OrderCount += row.OrderCount
	}

	kpi.Summary.ActiveStores = len(storeAgg)
	if kpi.Summary.TotalOrders > 0 {
		kpi.Summary.AvgOrderValue = kpi.Summary.TotalGMV / float64(kpi.Summary.TotalOrders)
	}

	for _, agg := range storeAgg {
		if agg.OrderCount > 0 {
			agg.AvgOrderValue = agg.GMV / float64(agg.OrderCount)
		}
		kpi.TopStores = append(kpi.TopStores, *agg)
	}
	sort.Slice(kpi.TopStores, func(i, j int) bool {
		return kpi.TopStores[i].GMV > kpi.TopStores[j].GMV
	})
	if len(kpi.TopStores) > limit {
		kpi.TopStores = kpi.TopStores[:limit]
	}

	for _, day := range dayAgg {
		kpi.DailyTrend = append(kpi.DailyTrend, *day)
	}
	sort.Slice(kpi.DailyTrend, func(i, j int) bool {
		return kpi.DailyTrend[i].Date < kpi.DailyTrend[j].Date
	})

	if s.respCache != nil {
		_ = s.respCache.Set(ctx, cacheKey, kpi, kpiCacheTTL)
	}
	return kpi, nil
}

func kpiCacheKey(filter inout.DashboardFilterReq) string {
	return fmt.Sprintf("dashboard:kpi:%s:%s:%s:%d",
		filter.StartDate, filter.EndDate, strings.Join(filter.StoreIDs, ","), filter.Limit)
}
