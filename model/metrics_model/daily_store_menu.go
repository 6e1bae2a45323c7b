package metrics_model

import "time"

// DailyStoreMenuMetric 门店菜单每日汇总，(store_id, menu_label, date) 唯一
type DailyStoreMenuMetric struct {
	StoreID    string    `json:"store_id" gorm:"column:store_id;primaryKey"`
	MenuLabel  string    `json:"menu_label" gorm:"column:menu_label;primaryKey"`
	Date       string    `json:"date" gorm:"column:date;primaryKey;index:idx_daily_menu_date"`
	StoreName  string    `json:"store_name" gorm:"column:store_name"`
	MenuName   string    `json:"menu_name" gorm:"column:menu_name"`
	Quantity   float64   `json:"quantity" gorm:"column:quantity"`
	Revenue    float64   `json:"revenue" gorm:"column:revenue"`
	OrderCount int       `json:"order_count" gorm:"column:order_count"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (DailyStoreMenuMetric) TableName() string {
	return "daily_store_menu_metrics"
}
