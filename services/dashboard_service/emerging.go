package dashboard_service

import (
	"context"
	"sort"

	"pos-insight/inout"
)

// 增长分权重：GMV 40%，订单量 35%，付费额 25%
// 每个分量按 100% 增长=50分 归一，上限100分
const (
	growthGMVWeight   = 0.40
	growthOrderWeight = 0.35
	growthPaidWeight  = 0.25
)

type storeGrowthStats struct {
	storeName string
	gmv       float64
	paid      float64
	orders    int
}

// GetEmergingStores 成长型门店榜单
// 窗口前后两半对比，按综合增长分排序
func (s *DashboardService) GetEmergingStores(ctx context.Context, filter inout.DashboardFilterReq) ([]inout.EmergingStore, error) {
	if err := s.ensureCachePopulated(ctx); err != nil {
		return nil, err
	}

	rows, err := s.store.QueryDailyStore(filter.StartDate, filter.EndDate, filter.StoreIDs)
	if err != nil {
		return nil, err
	}
	rows = filterDenied(rows)

	prevStart, prevEnd, currStart, _ := splitWindow(filter.StartDate, filter.EndDate)

	prev := make(map[string]*storeGrowthStats)
	curr := make(map[string]*storeGrowthStats)

	for _, row := range rows {
		var half map[string]*storeGrowthStats
		switch {
		case row.Date >= prevStart && row.Date <= prevEnd:
			half = prev
		case row.Date >= currStart:
			half = curr
		default:
			continue
		}
		st, exists := half[row.StoreID]
		if !exists {
			st = &storeGrowthStats{storeName: row.StoreName}
			half[row.StoreID] = st
		}
		st.gmv += row.GMV
		st.paid += row.PaidAmount
		st.orders += row.OrderCount
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}

	results := make([]inout.EmergingStore, 0, len(curr))
	for storeID, currStats := range curr {
		var prevGMV, prevPaid float64
		var prevOrders int
		if prevStats, ok := prev[storeID]; ok {
			prevGMV = prevStats.gmv
			prevPaid = prevStats.paid
			prevOrders = prevStats.orders
		}

		gmvGrowth := growthRatio(prevGMV, currStats.gmv)
		orderGrowth := growthRatio(float64(prevOrders), float64(currStats.orders))
		paidGrowth := growthRatio(prevPaid, currStats.paid)

		score := growthGMVWeight*growthPoints(gmvGrowth) +
			growthOrderWeight*growthPoints(orderGrowth) +
			growthPaidWeight*growthPoints(paidGrowth)

		results = append(results, inout.EmergingStore{
			StoreID:      storeID,
			StoreName:    currStats.storeName,
			GrowthScore:  score,
			GMVGrowth:    gmvGrowth,
			OrderGrowth:  orderGrowth,
			PaidGrowth:   paidGrowth,
			CurrentGMV:   currStats.gmv,
			PreviousGMV:  prevGMV,
			CurrentOrder: currStats.orders,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].GrowthScore > results[j].GrowthScore
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// growthPoints 100%增长记50分，封顶100分
func growthPoints(growth float64) float64 {
	points := growth * 50
	if points > 100 {
		points = 100
	}
	return points
}
