package metrics_model

import "time"

// DailyStoreMetric 门店每日汇总，(store_id, date) 唯一
type DailyStoreMetric struct {
	StoreID            string    `json:"store_id" gorm:"column:store_id;primaryKey"`
	Date               string    `json:"date" gorm:"column:date;primaryKey;index:idx_daily_store_date"`
	StoreName          string    `json:"store_name" gorm:"column:store_name"`
	GMV                float64   `json:"gmv" gorm:"column:gmv"`
	PaidAmount         float64   `json:"paid_amount" gorm:"column:paid_amount"`
	OrderCount         int       `json:"order_count" gorm:"column:order_count"`
	AvgOrderValue      float64   `json:"avg_order_value" gorm:"column:avg_order_value"`
	SuccessfulPayments int       `json:"successful_payments" gorm:"column:successful_payments"`
	FailedPayments     int       `json:"failed_payments" gorm:"column:failed_payments"`
	PaymentSuccessRate float64   `json:"payment_success_rate" gorm:"column:payment_success_rate"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (DailyStoreMetric) TableName() string {
	return "daily_store_metrics"
}
