package dashboard_service

import (
	"context"
	"sort"

	"pos-insight/inout"
	"pos-insight/model/metrics_model"
)

const (
	paretoCoreThreshold = 80.0 // 累计贡献80%以内的菜单视为核心
	trendTopMenus       = 5
	crossSellMinPairs   = 2
)

// GetMenuRankings 菜单销量/营收排行
func (s *DashboardService) GetMenuRankings(ctx context.Context, filter inout.DashboardFilterReq) ([]inout.MenuRanking, error) {
	rows, err := s.menuRows(ctx, filter)
	if err != nil {
		return nil, err
	}

	agg := make(map[string]*inout.MenuRanking)
	for _, row := range rows {
		r, exists := agg[row.MenuLabel]
		if !exists {
			r = &inout.MenuRanking{MenuLabel: row.MenuLabel}
			agg[row.MenuLabel] = r
		}
		r.Quantity += row.Quantity
		r.Revenue += row.Revenue
		r.OrderCount += row.OrderCount
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	results := make([]inout.MenuRanking, 0, len(agg))
	for _, r := range agg {
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Revenue > results[j].Revenue
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetMenuContribution 帕累托贡献分析
// 按营收降序累计百分比，累计80%以内标记为核心菜单
func (s *DashboardService) GetMenuContribution(ctx context.Context, filter inout.DashboardFilterReq) ([]inout.MenuContribution, error) {
	rows, err := s.menuRows(ctx, filter)
	if err != nil {
		return nil, err
	}

	revenue := make(map[string]float64)
	var total float64
	for _, row := range rows {
		revenue[row.MenuLabel] += row.Revenue
		total += row.Revenue
	}

	results := make([]inout.MenuContribution, 0, len(revenue))
	for label, rev := range revenue {
		results = append(results, inout.MenuContribution{MenuLabel: label, Revenue: rev})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Revenue > results[j].Revenue
	})

	var cumulative float64
	for i := range results {
		pc := 0.0
		if total > 0 {
			pc = results[i].Revenue / total * 100
		}
		cumulative += pc
		results[i].Percentage = pc
		results[i].CumulativePc = cumulative
		results[i].IsCore = cumulative <= paretoCoreThreshold
	}
	return results, nil
}

// GetMenuTrend 营收前N菜单的逐日趋势
func (s *DashboardService) GetMenuTrend(ctx context.Context, filter inout.DashboardFilterReq) ([]inout.MenuTrendSeries, error) {
	rows, err := s.menuRows(ctx, filter)
	if err != nil {
		return nil, err
	}

	topN := filter.Limit
	if topN <= 0 {
		topN = trendTopMenus
	}

	revenue := make(map[string]float64)
	for _, row := range rows {
		revenue[row.MenuLabel] += row.Revenue
	}
	labels := make([]string, 0, len(revenue))
	for label := range revenue {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		return revenue[labels[i]] > revenue[labels[j]]
	})
	if len(labels) > topN {
		labels = labels[:topN]
	}
	topSet := make(map[string]bool, len(labels))
	for _, label := range labels {
		topSet[label] = true
	}

	type dayKey struct {
		label string
		date  string
	}
	points := make(map[dayKey]*inout.MenuTrendPoint)
	for _, row := range rows {
		if !topSet[row.MenuLabel] {
			continue
		}
		k := dayKey{label: row.MenuLabel, date: row.Date}
		p, exists := points[k]
		if !exists {
			p = &inout.MenuTrendPoint{Date: row.Date}
			points[k] = p
		}
		p.Quantity += row.Quantity
		p.Revenue += row.Revenue
	}

	results := make([]inout.MenuTrendSeries, 0, len(labels))
	for _, label := range labels {
		series := inout.MenuTrendSeries{MenuLabel: label, Points: []inout.MenuTrendPoint{}}
		for k, p := range points {
			if k.label == label {
				series.Points = append(series.Points, *p)
			}
		}
		sort.Slice(series.Points, func(i, j int) bool {
			return series.Points[i].Date < series.Points[j].Date
		})
		results = append(results, series)
	}
	return results, nil
}

// GetCrossSellPairs 菜单共现分析
// 以门店-日为购物篮粒度统计support/confidence/lift
// （缓存里没有订单级行项目，门店日共现是缓存可answer的最细粒度）
func (s *DashboardService) GetCrossSellPairs(ctx context.Context, filter inout.DashboardFilterReq) ([]inout.CrossSellPair, error) {
	rows, err := s.menuRows(ctx, filter)
	if err != nil {
		return nil, err
	}

	type basketKey struct {
		storeID string
		date    string
	}
	baskets := make(map[basketKey]map[string]bool)
	for _, row := range rows {
		k := basketKey{storeID: row.StoreID, date: row.Date}
		if baskets[k] == nil {
			baskets[k] = make(map[string]bool)
		}
		baskets[k][row.MenuLabel] = true
	}

	totalBaskets := len(baskets)
	if totalBaskets == 0 {
		return []inout.CrossSellPair{}, nil
	}

	menuCount := make(map[string]int)
	type pairKey struct{ a, b string }
	pairCount := make(map[pairKey]int)

	for _, menus := range baskets {
		labels := make([]string, 0, len(menus))
		for label := range menus {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for i, a := range labels {
			menuCount[a]++
			for _, b := range labels[i+1:] {
				pairCount[pairKey{a: a, b: b}]++
			}
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	results := make([]inout.CrossSellPair, 0, len(pairCount))
	for pk, count := range pairCount {
		if count < crossSellMinPairs {
			continue
		}
		support := float64(count) / float64(totalBaskets)
		confidence := float64(count) / float64(menuCount[pk.a])
		pB := float64(menuCount[pk.b]) / float64(totalBaskets)
		lift := 0.0
		if pB > 0 {
			lift = confidence / pB
		}
		results = append(results, inout.CrossSellPair{
			MenuA:      pk.a,
			MenuB:      pk.b,
			Support:    support,
			Confidence: confidence,
			Lift:       lift,
			PairCount:  count,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Lift != results[j].Lift {
			return results[i].Lift > results[j].Lift
		}
		return results[i].PairCount > results[j].PairCount
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *DashboardService) menuRows(ctx context.Context, filter inout.DashboardFilterReq) ([]metrics_model.DailyStoreMenuMetric, error) {
	if err := s.ensureCachePopulated(ctx); err != nil {
		return nil, err
	}
	rows, err := s.store.QueryDailyStoreMenu(filter.StartDate, filter.EndDate, filter.StoreIDs)
	if err != nil {
		return nil, err
	}
	return filterDeniedMenu(rows), nil
}
