package metrics_model

import "time"

// HourlyStoreMetric 门店小时级汇总，(store_id, datetime) 唯一
// datetime 为截断到整点的 "YYYY-MM-DD HH:00:00"
type HourlyStoreMetric struct {
	StoreID    string    `json:"store_id" gorm:"column:store_id;primaryKey"`
	Datetime   string    `json:"datetime" gorm:"column:datetime;primaryKey;index:idx_hourly_datetime"`
	Hour       int       `json:"hour" gorm:"column:hour"`
	DayOfWeek  int       `json:"day_of_week" gorm:"column:day_of_week"` // 1=周日 .. 7=周六
	GMV        float64   `json:"gmv" gorm:"column:gmv"`
	OrderCount int       `json:"order_count" gorm:"column:order_count"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (HourlyStoreMetric) TableName() string {
	return "hourly_store_metrics"
}
