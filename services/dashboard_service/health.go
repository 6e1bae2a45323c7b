package dashboard_service

import (
	"context"
	"sort"
	"time"

	"pos-insight/inout"
)

// 健康度权重：GMV下滑40分，菜单多样性下滑25分，活跃天数下滑20分，
// 距最后下单天数最多扣15分
const (
	healthGMVWeight       = 40.0
	healthMenuWeight      = 25.0
	healthActiveWeight    = 20.0
	healthRecencyMax      = 15.0
	healthRecencyPerDay   = 1.5
	statusActiveThreshold = 80.0
	statusWarnThreshold   = 60.0
	statusDangerThreshold = 40.0
)

type storeHalfStats struct {
	storeName  string
	gmv        float64
	activeDays map[string]bool
	menus      map[string]bool
	lastDate   string
}

// GetStoreHealth 门店健康度评分
// 窗口切成前后两半做环比，按综合扣分落到四个状态桶
func (s *DashboardService) GetStoreHealth(ctx context.Context, filter inout.DashboardFilterReq) ([]inout.StoreHealth, error) {
	if err := s.ensureCachePopulated(ctx); err != nil {
		return nil, err
	}

	rows, err := s.store.QueryDailyStore(filter.StartDate, filter.EndDate, filter.StoreIDs)
	if err != nil {
		return nil, err
	}
	rows = filterDenied(rows)

	menuRows, err := s.store.QueryDailyStoreMenu(filter.StartDate, filter.EndDate, filter.StoreIDs)
	if err != nil {
		return nil, err
	}
	menuRows = filterDeniedMenu(menuRows)

	prevStart, prevEnd, currStart, _ := splitWindow(filter.StartDate, filter.EndDate)

	prev := make(map[string]*storeHalfStats)
	curr := make(map[string]*storeHalfStats)

	halfOf := func(date string) map[string]*storeHalfStats {
		if date >= prevStart && date <= prevEnd {
			return prev
		}
		if date >= currStart {
			return curr
		}
		return nil
	}

	ensure := func(m map[string]*storeHalfStats, storeID, storeName string) *storeHalfStats {
		st, exists := m[storeID]
		if !exists {
			st = &storeHalfStats{
				storeName:  storeName,
				activeDays: make(map[string]bool),
				menus:      make(map[string]bool),
			}
			m[storeID] = st
		}
		return st
	}

	lastOrderDate := make(map[string]string)
	for _, row := range rows {
		half := halfOf(row.Date)
		if half == nil {
			continue
		}
		st := ensure(half, row.StoreID, row.StoreName)
		st.gmv += row.GMV
		if row.OrderCount > 0 {
			st.activeDays[row.Date] = true
			if row.Date > lastOrderDate[row.StoreID] {
				lastOrderDate[row.StoreID] = row.Date
			}
		}
	}
	for _, row := range menuRows {
		half := halfOf(row.Date)
		if half == nil {
			continue
		}
		ensure(half, row.StoreID, row.StoreName).menus[row.MenuLabel] = true
	}

	endDate, _ := time.Parse("2006-01-02", filter.EndDate)

	results := make([]inout.StoreHealth, 0, len(curr)+len(prev))
	seen := make(map[string]bool)
	for _, m := range []map[string]*storeHalfStats{curr, prev} {
		for storeID, st := range m {
			if seen[storeID] {
				continue
			}
			seen[storeID] = true

			prevStats := prev[storeID]
			currStats := curr[storeID]

			var prevGMV, currGMV, prevMenus, currMenus, prevDays, currDays float64
			name := st.storeName
			if prevStats != nil {
				prevGMV = prevStats.gmv
				prevMenus = float64(len(prevStats.menus))
				prevDays = float64(len(prevStats.activeDays))
				name = prevStats.storeName
			}
			if currStats != nil {
				currGMV = currStats.gmv
				currMenus = float64(len(currStats.menus))
				currDays = float64(len(currStats.activeDays))
				name = currStats.storeName
			}

			gmvDecline := declineRatio(prevGMV, currGMV)
			menuDecline := declineRatio(prevMenus, currMenus)
			dayDecline := declineRatio(prevDays, currDays)

			daysSince := 0
			if last, ok := lastOrderDate[storeID]; ok {
				if lastT, err := time.Parse("2006-01-02", last); err == nil {
					daysSince = int(endDate.Sub(lastT).Hours() / 24)
					if daysSince < 0 {
						daysSince = 0
					}
				}
			}
			recencyPenalty := float64(daysSince) * healthRecencyPerDay
			if recencyPenalty > healthRecencyMax {
				recencyPenalty = healthRecencyMax
			}

			score := 100.0 -
				healthGMVWeight*gmvDecline -
				healthMenuWeight*menuDecline -
				healthActiveWeight*dayDecline -
				recencyPenalty
			if score < 0 {
				score = 0
			}

			results = append(results, inout.StoreHealth{
				StoreID:            storeID,
				StoreName:          name,
				HealthScore:        score,
				Status:             healthStatus(score),
				GMVDecline:         gmvDecline,
				MenuDecline:        menuDecline,
				ActiveDayDecline:   dayDecline,
				DaysSinceLastOrder: daysSince,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].HealthScore < results[j].HealthScore
	})
	return results, nil
}

func healthStatus(score float64) string {
	switch {
	case score >= statusActiveThreshold:
		return "active"
	case score >= statusWarnThreshold:
		return "warning"
	case score >= statusDangerThreshold:
		return "danger"
	default:
		return "churned"
	}
}
