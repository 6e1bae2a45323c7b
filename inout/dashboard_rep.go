package inout

// DashboardKPI 看板核心指标响应
type DashboardKPI struct {
	Summary    KPISummary   `json:"summary"`
	TopStores  []StoreKPI   `json:"top_stores"`
	DailyTrend []DailyPoint `json:"daily_trend"`
	Cached     bool         `json:"cached"`
}

// KPISummary 窗口内总量
type KPISummary struct {
	TotalGMV        float64 `json:"total_gmv"`
	TotalPaidAmount float64 `json:"total_paid_amount"`
	TotalOrders     int     `json:"total_orders"`
	AvgOrderValue   float64 `json:"avg_order_value"`
	ActiveStores    int     `json:"active_stores"`
}

// StoreKPI 单店汇总
type StoreKPI struct {
	StoreID       string  `json:"store_id"`
	StoreName     string  `json:"store_name"`
	GMV           float64 `json:"gmv"`
	PaidAmount    float64 `json:"paid_amount"`
	OrderCount    int     `json:"order_count"`
	AvgOrderValue float64 `json:"avg_order_value"`
}

// DailyPoint 逐日趋势点
type DailyPoint struct {
	Date       string  `json:"date"`
	GMV        float64 `json:"gmv"`
	PaidAmount float64 `json:"paid_amount"`
	OrderCount int     `json:"order_count"`
}

// StoreHealth 门店健康度
type StoreHealth struct {
	StoreID            string  `json:"store_id"`
	StoreName          string  `json:"store_name"`
	HealthScore        float64 `json:"health_score"` // 0-100
	Status             string  `json:"status"`       // active/warning/danger/churned
	GMVDecline         float64 `json:"gmv_decline"`
	MenuDecline        float64 `json:"menu_decline"`
	ActiveDayDecline   float64 `json:"active_day_decline"`
	DaysSinceLastOrder int     `json:"days_since_last_order"`
}

// EmergingStore 增长榜门店
type EmergingStore struct {
	StoreID      string  `json:"store_id"`
	StoreName    string  `json:"store_name"`
	GrowthScore  float64 `json:"growth_score"`
	GMVGrowth    float64 `json:"gmv_growth"`
	OrderGrowth  float64 `json:"order_growth"`
	PaidGrowth   float64 `json:"paid_growth"`
	CurrentGMV   float64 `json:"current_gmv"`
	PreviousGMV  float64 `json:"previous_gmv"`
	CurrentOrder int     `json:"current_orders"`
}

// MenuRanking 菜单排行项
type MenuRanking struct {
	MenuLabel  string  `json:"menu_label"`
	Quantity   float64 `json:"quantity"`
	Revenue    float64 `json:"revenue"`
	OrderCount int     `json:"order_count"`
}

// MenuContribution 帕累托贡献项
type MenuContribution struct {
	MenuLabel    string  `json:"menu_label"`
	Revenue      float64 `json:"revenue"`
	Percentage   float64 `json:"percentage"`
	CumulativePc float64 `json:"cumulative_percentage"`
	IsCore       bool    `json:"is_core"` // 累计贡献80%以内
}

// MenuTrendSeries 单菜单逐日序列
type MenuTrendSeries struct {
	MenuLabel string           `json:"menu_label"`
	Points    []MenuTrendPoint `json:"points"`
}

// MenuTrendPoint 菜单趋势点
type MenuTrendPoint struct {
	Date     string  `json:"date"`
	Quantity float64 `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// CrossSellPair 共现菜单对
type CrossSellPair struct {
	MenuA      string  `json:"menu_a"`
	MenuB      string  `json:"menu_b"`
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
	Lift       float64 `json:"lift"`
	PairCount  int     `json:"pair_count"`
}
