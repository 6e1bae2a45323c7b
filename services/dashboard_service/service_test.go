package dashboard_service

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"pos-insight/cachestore"
	"pos-insight/inout"
	"pos-insight/model/metrics_model"
	"pos-insight/pkg/config"
)

func newTestService(t *testing.T, autoRefresh bool, boot Bootstrapper) (*DashboardService, *cachestore.Store) {
	t.Helper()

	store, err := cachestore.Open(config.CacheConfig{
		DBPath:      filepath.Join(t.TempDir(), "dash.db"),
		BusyTimeout: 5000,
		LogLevel:    "silent",
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewDashboardService(store, boot, nil, autoRefresh), store
}

func seedDaily(t *testing.T, store *cachestore.Store, rows ...metrics_model.DailyStoreMetric) {
	t.Helper()
	if err := store.UpsertDailyStore(rows); err != nil {
		t.Fatalf("seed daily: %v", err)
	}
}

func seedMenu(t *testing.T, store *cachestore.Store, rows ...metrics_model.DailyStoreMenuMetric) {
	t.Helper()
	if err := store.UpsertDailyStoreMenu(rows); err != nil {
		t.Fatalf("seed menu: %v", err)
	}
}

func daily(storeID, storeName, date string, gmv, paid float64, orders int) metrics_model.DailyStoreMetric {
	return metrics_model.DailyStoreMetric{
		StoreID:    storeID,
		StoreName:  storeName,
		Date:       date,
		GMV:        gmv,
		PaidAmount: paid,
		OrderCount: orders,
		UpdatedAt:  time.Now(),
	}
}

func menu(storeID, storeName, label, date string, qty, revenue float64, orders int) metrics_model.DailyStoreMenuMetric {
	return metrics_model.DailyStoreMenuMetric{
		StoreID:    storeID,
		StoreName:  storeName,
		MenuLabel:  label,
		MenuName:   label,
		Date:       date,
		Quantity:   qty,
		Revenue:    revenue,
		OrderCount: orders,
		UpdatedAt:  time.Now(),
	}
}

func window(start, end string) inout.DashboardFilterReq {
	return inout.DashboardFilterReq{StartDate: start, EndDate: end}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestKPIAggregationExcludesDeniedStores(t *testing.T) {
	svc, store := newTestService(t, false, nil)
	seedDaily(t, store,
		daily("s1", "Alpha", "2024-01-01", 100, 80, 4),
		daily("s1", "Alpha", "2024-01-02", 200, 150, 6),
		daily("s2", "Beta", "2024-01-01", 50, 50, 2),
		// 演示门店：任何看板输出都不能出现
		daily("demo", "Demo Store", "2024-01-01", 9999, 9999, 99),
	)

	kpi, err := svc.GetDashboardKPIs(context.Background(), window("2024-01-01", "2024-01-02"))
	if err != nil {
		t.Fatalf("GetDashboardKPIs: %v", err)
	}

	if !almostEqual(kpi.Summary.TotalGMV, 350) {
		t.Errorf("total GMV: want 350, got %v", kpi.Summary.TotalGMV)
	}
	if !almostEqual(kpi.Summary.TotalPaidAmount, 280) {
		t.Errorf("total paid: want 280, got %v", kpi.Summary.TotalPaidAmount)
	}
	if kpi.Summary.TotalOrders != 12 {
		t.Errorf("total orders: want 12, got %d", kpi.Summary.TotalOrders)
	}
	if kpi.Summary.ActiveStores != 2 {
		t.Errorf("active stores: want 2, got %d", kpi.Summary.ActiveStores)
	}
	if !almostEqual(kpi.Summary.AvgOrderValue, 350.0/12) {
		t.Errorf("avg order value: want %v, got %v", 350.0/12, kpi.Summary.AvgOrderValue)
	}

	if len(kpi.TopStores) != 2 {
		t.Fatalf("top stores: want 2, got %d", len(kpi.TopStores))
	}
	if kpi.TopStores[0].StoreID != "s1" || !almostEqual(kpi.TopStores[0].GMV, 300) {
		t.Errorf("top store should be s1 with GMV 300: %+v", kpi.TopStores[0])
	}
	for _, st := range kpi.TopStores {
		if st.StoreName == "Demo Store" {
			t.Errorf("denied store leaked into top stores")
		}
	}

	if len(kpi.DailyTrend) != 2 {
		t.Fatalf("daily trend: want 2 points, got %d", len(kpi.DailyTrend))
	}
	if kpi.DailyTrend[0].Date != "2024-01-01" || kpi.DailyTrend[1].Date != "2024-01-02" {
		t.Errorf("trend not ascending: %+v", kpi.DailyTrend)
	}
	if !almostEqual(kpi.DailyTrend[0].GMV, 150) {
		t.Errorf("2024-01-01 GMV want 150 (demo excluded), got %v", kpi.DailyTrend[0].GMV)
	}
}

func TestKPITopStoresLimited(t *testing.T) {
	svc, store := newTestService(t, false, nil)
	seedDaily(t, store,
		daily("a", "A", "2024-01-01", 300, 300, 1),
		daily("b", "B", "2024-01-01", 200, 200, 1),
		daily("c", "C", "2024-01-01", 100, 100, 1),
	)

	filter := window("2024-01-01", "2024-01-01")
	filter.Limit = 2
	kpi, err := svc.GetDashboardKPIs(context.Background(), filter)
	if err != nil {
		t.Fatalf("GetDashboardKPIs: %v", err)
	}
	if len(kpi.TopStores) != 2 {
		t.Fatalf("limit not applied: %d", len(kpi.TopStores))
	}
	if kpi.TopStores[0].StoreID != "a" || kpi.TopStores[1].StoreID != "b" {
		t.Errorf("wrong ordering: %+v", kpi.TopStores)
	}
	// 榜单截断不影响总量
	if kpi.Summary.ActiveStores != 3 {
		t.Errorf("summary must count all stores, got %d", kpi.Summary.ActiveStores)
	}
}

func TestEmptyCacheWithoutAutoRefresh(t *testing.T) {
	svc, _ := newTestService(t, false, nil)
	filter := window("2024-01-01", "2024-01-02")

	if _, err := svc.GetDashboardKPIs(context.Background(), filter); !errors.Is(err, ErrCacheEmpty) {
		t.Errorf("KPIs: want ErrCacheEmpty, got %v", err)
	}
	if _, err := svc.GetStoreHealth(context.Background(), filter); !errors.Is(err, ErrCacheEmpty) {
		t.Errorf("health: want ErrCacheEmpty, got %v", err)
	}
	if _, err := svc.GetMenuRankings(context.Background(), filter); !errors.Is(err, ErrCacheEmpty) {
		t.Errorf("menu: want ErrCacheEmpty, got %v", err)
	}
}

// fakeBoot 模拟冷启动引导：FullSync 被调用时向缓存库灌一行数据
type fakeBoot struct {
	store *cachestore.Store
	calls int
}

func (f *fakeBoot) FullSync(ctx context.Context, days int) (*SyncOutcome, error) {
	f.calls++
	row := daily("s1", "Alpha", "2024-01-01", 100, 100, 1)
	if err := f.store.UpsertDailyStore([]metrics_model.DailyStoreMetric{row}); err != nil {
		return nil, err
	}
	return &SyncOutcome{SyncedDates: []string{"2024-01-01"}}, nil
}

func TestEmptyCacheBootstrapsWhenAutoRefreshEnabled(t *testing.T) {
	boot := &fakeBoot{}
	svc, store := newTestService(t, true, boot)
	boot.store = store

	kpi, err := svc.GetDashboardKPIs(context.Background(), window("2024-01-01", "2024-01-01"))
	if err != nil {
		t.Fatalf("GetDashboardKPIs: %v", err)
	}
	if boot.calls != 1 {
		t.Errorf("bootstrap should run exactly once, ran %d", boot.calls)
	}
	if kpi.Summary.TotalOrders != 1 {
		t.Errorf("bootstrapped data not served: %+v", kpi.Summary)
	}

	// 缓存已非空，后续请求不再引导
	if _, err := svc.GetDashboardKPIs(context.Background(), window("2024-01-01", "2024-01-01")); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if boot.calls != 1 {
		t.Errorf("bootstrap must not repeat on warm cache, ran %d", boot.calls)
	}
}

func TestStoreHealthHandComputed(t *testing.T) {
	svc, store := newTestService(t, false, nil)
	// 窗口 01-01..01-04，前半 [01-01,01-02]，后半 [01-03,01-04]
	seedDaily(t, store,
		// h1: GMV 200->100(-50%)，活跃天 2->1(-50%)，最后下单 01-03（距窗口末1天）
		daily("h1", "Slipping", "2024-01-01", 100, 100, 2),
		daily("h1", "Slipping", "2024-01-02", 100, 100, 2),
		daily("h1", "Slipping", "2024-01-03", 100, 100, 2),
		// h2: 两半完全持平，最后下单正好在窗口末
		daily("h2", "Steady", "2024-01-01", 50, 50, 1),
		daily("h2", "Steady", "2024-01-02", 50, 50, 1),
		daily("h2", "Steady", "2024-01-03", 50, 50, 1),
		daily("h2", "Steady", "2024-01-04", 50, 50, 1),
	)
	seedMenu(t, store,
		// h1 菜单多样性 2->1(-50%)
		menu("h1", "Slipping", "Latte", "2024-01-01", 1, 10, 1),
		menu("h1", "Slipping", "Bagel", "2024-01-02", 1, 10, 1),
		menu("h1", "Slipping", "Latte", "2024-01-03", 1, 10, 1),
		menu("h2", "Steady", "Latte", "2024-01-01", 1, 10, 1),
		menu("h2", "Steady", "Latte", "2024-01-03", 1, 10, 1),
	)

	results, err := svc.GetStoreHealth(context.Background(), window("2024-01-01", "2024-01-04"))
	if err != nil {
		t.Fatalf("GetStoreHealth: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 stores, got %d", len(results))
	}

	// 升序：最差的排最前
	if results[0].StoreID != "h1" {
		t.Fatalf("worst store first: %+v", results)
	}

	// h1: 100 - 40*0.5 - 25*0.5 - 20*0.5 - 1*1.5 = 56.0 -> danger
	h1 := results[0]
	if !almostEqual(h1.HealthScore, 56.0) {
		t.Errorf("h1 score: want 56.0, got %v", h1.HealthScore)
	}
	if h1.Status != "danger" {
		t.Errorf("h1 status: want danger, got %s", h1.Status)
	}
	if !almostEqual(h1.GMVDecline, 0.5) || !almostEqual(h1.MenuDecline, 0.5) || !almostEqual(h1.ActiveDayDecline, 0.5) {
		t.Errorf("h1 declines: %+v", h1)
	}
	if h1.DaysSinceLastOrder != 1 {
		t.Errorf("h1 days since last order: want 1, got %d", h1.DaysSinceLastOrder)
	}

	// h2: 无下滑、零间隔 -> 满分 active
	h2 := results[1]
	if !almostEqual(h2.HealthScore, 100.0) || h2.Status != "active" {
		t.Errorf("h2 should be a perfect active store: %+v", h2)
	}
}

func TestHealthStatusBuckets(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{100, "active"}, {80, "active"},
		{79.9, "warning"}, {60, "warning"},
		{59.9, "danger"}, {40, "danger"},
		{39.9, "churned"}, {0, "churned"},
	}
	for _, c := range cases {
		if got := healthStatus(c.score); got != c.want {
			t.Errorf("healthStatus(%v): want %s, got %s", c.score, c.want, got)
		}
	}
}

func TestEmergingStoresScoring(t *testing.T) {
	svc, store := newTestService(t, false, nil)
	// 窗口 01-01..01-04，前半 [01-01,01-02]，后半 [01-03,01-04]
	seedDaily(t, store,
		// g1: 三项指标整体翻倍，增长比例 1.0 -> 每项50分 -> 总分50
		daily("g1", "Rocket", "2024-01-01", 100, 80, 10),
		daily("g1", "Rocket", "2024-01-03", 200, 160, 20),
		// g2: 完全持平，增长0 -> 0分
		daily("g2", "Flat", "2024-01-01", 100, 100, 10),
		daily("g2", "Flat", "2024-01-03", 100, 100, 10),
		// g3: 翻了四倍，单项150分被封顶到100 -> 总分100
		daily("g3", "Moon", "2024-01-01", 10, 10, 1),
		daily("g3", "Moon", "2024-01-03", 40, 40, 4),
	)

	results, err := svc.GetEmergingStores(context.Background(), window("2024-01-01", "2024-01-04"))
	if err != nil {
		t.Fatalf("GetEmergingStores: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("want 3 stores, got %d", len(results))
	}

	if results[0].StoreID != "g3" || !almostEqual(results[0].GrowthScore, 100.0) {
		t.Errorf("g3 should top the list with capped score 100: %+v", results[0])
	}
	if results[1].StoreID != "g1" || !almostEqual(results[1].GrowthScore, 50.0) {
		t.Errorf("g1 should score 50: %+v", results[1])
	}
	if results[2].StoreID != "g2" || !almostEqual(results[2].GrowthScore, 0.0) {
		t.Errorf("g2 should score 0: %+v", results[2])
	}

	g1 := results[1]
	if !almostEqual(g1.GMVGrowth, 1.0) || !almostEqual(g1.OrderGrowth, 1.0) || !almostEqual(g1.PaidGrowth, 1.0) {
		t.Errorf("g1 growth ratios: %+v", g1)
	}
	if !almostEqual(g1.CurrentGMV, 200) || !almostEqual(g1.PreviousGMV, 100) {
		t.Errorf("g1 window GMV: %+v", g1)
	}
}

func TestEmergingStoreNewInCurrentHalf(t *testing.T) {
	svc, store := newTestService(t, false, nil)
	// 前半没有任何行：零基数上的增长按100%计
	seedDaily(t, store,
		daily("new", "Newcomer", "2024-01-03", 100, 100, 5),
	)

	results, err := svc.GetEmergingStores(context.Background(), window("2024-01-01", "2024-01-04"))
	if err != nil {
		t.Fatalf("GetEmergingStores: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("want 1 store, got %d", len(results))
	}
	if !almostEqual(results[0].GrowthScore, 50.0) {
		t.Errorf("new store treated as 100%% growth -> 50 points: %+v", results[0])
	}
}

func TestMenuRankingsAggregateAndDeny(t *testing.T) {
	svc, store := newTestService(t, false, nil)
	seedDaily(t, store, daily("s1", "Alpha", "2024-01-01", 15, 15, 3))
	seedMenu(t, store,
		menu("s1", "Alpha", "Latte", "2024-01-01", 3, 12, 2),
		menu("s2", "Beta", "Latte", "2024-01-02", 2, 8, 1),
		menu("s1", "Alpha", "Bagel", "2024-01-01", 1, 3, 1),
		menu("demo", "Demo Store", "Latte", "2024-01-01", 100, 400, 50),
	)

	results, err := svc.GetMenuRankings(context.Background(), window("2024-01-01", "2024-01-02"))
	if err != nil {
		t.Fatalf("GetMenuRankings: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 menus, got %d", len(results))
	}
	latte := results[0]
	if latte.MenuLabel != "Latte" {
		t.Fatalf("Latte should rank first by revenue: %+v", results)
	}
	// Demo Store 的400元必须被排除
	if !almostEqual(latte.Revenue, 20) || !almostEqual(latte.Quantity, 5) || latte.OrderCount != 3 {
		t.Errorf("Latte cross-store aggregate wrong: %+v", latte)
	}
}

func TestMenuContributionPareto(t *testing.T) {
	svc, store := newTestService(t, false, nil)
	seedDaily(t, store, daily("s1", "Alpha", "2024-01-01", 100, 100, 4))
	seedMenu(t, store,
		menu("s1", "Alpha", "A", "2024-01-01", 1, 50, 1),
		menu("s1", "Alpha", "B", "2024-01-01", 1, 30, 1),
		menu("s1", "Alpha", "C", "2024-01-01", 1, 15, 1),
		menu("s1", "Alpha", "D", "2024-01-01", 1, 5, 1),
	)

	results, err := svc.GetMenuContribution(context.Background(), window("2024-01-01", "2024-01-01"))
	if err != nil {
		t.Fatalf("GetMenuContribution: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("want 4 menus, got %d", len(results))
	}

	wantCum := []float64{50, 80, 95, 100}
	wantCore := []bool{true, true, false, false}
	for i, r := range results {
		if !almostEqual(r.CumulativePc, wantCum[i]) {
			t.Errorf("menu %s cumulative: want %v, got %v", r.MenuLabel, wantCum[i], r.CumulativePc)
		}
		if r.IsCore != wantCore[i] {
			t.Errorf("menu %s core flag: want %v, got %v", r.MenuLabel, wantCore[i], r.IsCore)
		}
	}
}

func TestMenuTrendTopN(t *testing.T) {
	svc, store := newTestService(t, false, nil)
	seedDaily(t, store, daily("s1", "Alpha", "2024-01-01", 11, 11, 2))
	seedMenu(t, store,
		menu("s1", "Alpha", "Latte", "2024-01-01", 2, 8, 1),
		menu("s1", "Alpha", "Latte", "2024-01-02", 3, 12, 2),
		menu("s1", "Alpha", "Bagel", "2024-01-01", 1, 3, 1),
	)

	filter := window("2024-01-01", "2024-01-02")
	filter.Limit = 1
	results, err := svc.GetMenuTrend(context.Background(), filter)
	if err != nil {
		t.Fatalf("GetMenuTrend: %v", err)
	}
	if len(results) != 1 || results[0].MenuLabel != "Latte" {
		t.Fatalf("top-1 must be Latte only: %+v", results)
	}
	points := results[0].Points
	if len(points) != 2 || points[0].Date != "2024-01-01" || points[1].Date != "2024-01-02" {
		t.Fatalf("points must be ascending by date: %+v", points)
	}
	if !almostEqual(points[1].Revenue, 12) {
		t.Errorf("point revenue: %+v", points[1])
	}
}

func TestCrossSellPairsSupportConfidenceLift(t *testing.T) {
	svc, store := newTestService(t, false, nil)
	// 篮子粒度是 门店-日：s1有两天(A,B)共现，s2只卖A
	seedDaily(t, store, daily("s1", "Alpha", "2024-01-01", 30, 30, 3))
	seedMenu(t, store,
		menu("s1", "Alpha", "A", "2024-01-01", 1, 10, 1),
		menu("s1", "Alpha", "B", "2024-01-01", 1, 10, 1),
		menu("s1", "Alpha", "C", "2024-01-01", 1, 10, 1),
		menu("s1", "Alpha", "A", "2024-01-02", 1, 10, 1),
		menu("s1", "Alpha", "B", "2024-01-02", 1, 10, 1),
		menu("s2", "Beta", "A", "2024-01-01", 1, 10, 1),
	)

	results, err := svc.GetCrossSellPairs(context.Background(), window("2024-01-01", "2024-01-02"))
	if err != nil {
		t.Fatalf("GetCrossSellPairs: %v", err)
	}
	// 只有 (A,B) 共现达到2次，(A,C)/(B,C) 各1次被过滤
	if len(results) != 1 {
		t.Fatalf("want exactly pair (A,B), got %+v", results)
	}
	pair := results[0]
	if pair.MenuA != "A" || pair.MenuB != "B" || pair.PairCount != 2 {
		t.Fatalf("unexpected pair: %+v", pair)
	}
	// 3个篮子：support=2/3，confidence=2/3，P(B)=2/3，lift=1
	if !almostEqual(pair.Support, 2.0/3) {
		t.Errorf("support: want 2/3, got %v", pair.Support)
	}
	if !almostEqual(pair.Confidence, 2.0/3) {
		t.Errorf("confidence: want 2/3, got %v", pair.Confidence)
	}
	if !almostEqual(pair.Lift, 1.0) {
		t.Errorf("lift: want 1.0, got %v", pair.Lift)
	}
}

func TestSplitWindow(t *testing.T) {
	cases := []struct {
		start, end string
		prevStart  string
		prevEnd    string
		currStart  string
		currEnd    string
	}{
		{"2024-01-01", "2024-01-04", "2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"},
		{"2024-01-01", "2024-01-05", "2024-01-01", "2024-01-02", "2024-01-03", "2024-01-05"},
		{"2024-01-01", "2024-01-01", "2024-01-01", "2024-01-01", "2024-01-01", "2024-01-01"},
	}
	for _, c := range cases {
		ps, pe, cs, ce := splitWindow(c.start, c.end)
		if ps != c.prevStart || pe != c.prevEnd || cs != c.currStart || ce != c.currEnd {
			t.Errorf("splitWindow(%s, %s) = %s %s %s %s, want %s %s %s %s",
				c.start, c.end, ps, pe, cs, ce, c.prevStart, c.prevEnd, c.currStart, c.currEnd)
		}
	}
}
