package sync_service

import (
	"sort"
	"time"

	"pos-insight/model/metrics_model"
	"pos-insight/model/source_model"

	"github.com/shopspring/decimal"
)

// UnknownStoreName 门店元数据缺失时的兜底名称
const UnknownStoreName = "Unknown Store"

// 聚合折叠：把一批已join门店信息的订单折成三类指标行。
// 全部是纯内存计算，不碰数据库，便于单测核对数值。
// 金额用decimal累加，避免浮点累计误差导致与手算结果不一致。

type dailyStoreAcc struct {
	storeName  string
	gmv        decimal.Decimal
	paidAmount decimal.Decimal
	orderCount int
}

type menuAcc struct {
	storeName  string
	quantity   decimal.Decimal
	revenue    decimal.Decimal
	orderCount int
}

type hourlyAcc struct {
	gmv        decimal.Decimal
	orderCount int
}

// orderDate 订单时间戳的自然日部分
func orderDate(orderTime string) string {
	if len(orderTime) < 10 {
		return ""
	}
	return orderTime[:10]
}

// parseAmount 解析字符串金额；负数或非法值视为不可用
func parseAmount(raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	if amount.IsNegative() {
		return decimal.Zero, false
	}
	return amount, true
}

// includeOrder 订单是否计入聚合
// 金额超过异常上限的是压测/脏数据，全链路排除
func includeOrder(o source_model.JoinedOrder, ceiling float64) (decimal.Decimal, bool) {
	amount, ok := parseAmount(o.Amount)
	if !ok {
		return decimal.Zero, false
	}
	if amount.GreaterThan(decimal.NewFromFloat(ceiling)) {
		return decimal.Zero, false
	}
	return amount, true
}

func storeNameOf(o source_model.JoinedOrder) string {
	if o.StoreName == "" {
		return UnknownStoreName
	}
	return o.StoreName
}

// BuildDailyStoreMetrics 按 (store_id, 自然日) 折叠订单
// paid_amount 只累计 pricing_plan 门店的订单；源库没有失败支付记录，
// 每条落库订单都视为支付成功，成功率恒为1.0
func BuildDailyStoreMetrics(orders []source_model.JoinedOrder, ceiling float64, now time.Time) []metrics_model.DailyStoreMetric {
	type key struct {
		storeID string
		date    string
	}
	accs := make(map[key]*dailyStoreAcc)

	for _, o := range orders {
		amount, ok := includeOrder(o, ceiling)
		if !ok {
			continue
		}
		date := orderDate(o.OrderTime)
		if date == "" {
			continue
		}

		k := key{storeID: o.StoreID, date: date}
		acc, exists := accs[k]
		if !exists {
			acc = &dailyStoreAcc{storeName: storeNameOf(o)}
			accs[k] = acc
		}
		acc.gmv = acc.gmv.Add(amount)
		if o.PricingPlan {
			acc.paidAmount = acc.paidAmount.Add(amount)
		}
		acc.orderCount++
	}

	records := make([]metrics_model.DailyStoreMetric, 0, len(accs))
	for k, acc := range accs {
		gmv, _ := acc.gmv.Float64()
		paid, _ := acc.paidAmount.Float64()

		// orderCount=0 的组不会出现在map里，但除零保护仍然保留
		avg := 0.0
		if acc.orderCount > 0 {
			avgDec := acc.gmv.Div(decimal.NewFromInt(int64(acc.orderCount)))
			avg, _ = avgDec.Float64()
		}

		records = append(records, metrics_model.DailyStoreMetric{
			StoreID:            k.storeID,
			Date:               k.date,
			StoreName:          acc.storeName,
			GMV:                gmv,
			PaidAmount:         paid,
			OrderCount:         acc.orderCount,
			AvgOrderValue:      avg,
			SuccessfulPayments: acc.orderCount,
			FailedPayments:     0,
			PaymentSuccessRate: 1.0,
			UpdatedAt:          now,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		return records[i].StoreID < records[j].StoreID
	})
	return records
}

// BuildMenuMetrics 把每笔订单的行项目折进 (store_id, menu_label, 自然日) 累加器
// 返回解析失败的订单数，供数据质量监控
func BuildMenuMetrics(orders []source_model.JoinedOrder, ceiling float64, now time.Time) ([]metrics_model.DailyStoreMenuMetric, int) {
	type key struct {
		storeID   string
		menuLabel string
		date      string
	}
	accs := make(map[key]*menuAcc)
	parseErrors := 0

	for _, o := range orders {
		if _, ok := includeOrder(o, ceiling); !ok {
			continue
		}
		date := orderDate(o.OrderTime)
		if date == "" {
			continue
		}

		result := ParseLineItems(o.LineItems)
		if !result.OK {
			parseErrors++
			continue
		}

		for _, item := range result.Items {
			// 缺名称只跳过这一条行项目，不影响同单其它项
			if item.Name == "" {
				continue
			}

			k := key{storeID: o.StoreID, menuLabel: item.Name, date: date}
			acc, exists := accs[k]
			if !exists {
				acc = &menuAcc{storeName: storeNameOf(o)}
				accs[k] = acc
			}
			price := decimal.NewFromFloat(item.Price)
			qty := decimal.NewFromFloat(item.Qty)
			acc.quantity = acc.quantity.Add(qty)
			acc.revenue = acc.revenue.Add(price.Mul(qty))
			acc.orderCount++
		}
	}

	records := make([]metrics_model.DailyStoreMenuMetric, 0, len(accs))
	for k, acc := range accs {
		quantity, _ := acc.quantity.Float64()
		revenue, _ := acc.revenue.Float64()
		records = append(records, metrics_model.DailyStoreMenuMetric{
			StoreID:    k.storeID,
			MenuLabel:  k.menuLabel,
			Date:       k.date,
			StoreName:  acc.storeName,
			MenuName:   k.menuLabel,
			Quantity:   quantity,
			Revenue:    revenue,
			OrderCount: acc.orderCount,
			UpdatedAt:  now,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date < records[j].Date
		}
		if records[i].StoreID != records[j].StoreID {
			return records[i].StoreID < records[j].StoreID
		}
		return records[i].MenuLabel < records[j].MenuLabel
	})
	return records, parseErrors
}

// BuildHourlyMetrics 按 (store_id, 整点) 折叠订单
// day_of_week 采用 1=周日..7=周六 约定
func BuildHourlyMetrics(orders []source_model.JoinedOrder, ceiling float64, now time.Time) []metrics_model.HourlyStoreMetric {
	type key struct {
		storeID  string
		datetime string
	}
	accs := make(map[key]*hourlyAcc)

	for _, o := range orders {
		amount, ok := includeOrder(o, ceiling)
		if !ok {
			continue
		}

		ts, err := time.Parse("2006-01-02 15:04:05", o.OrderTime)
		if err != nil {
			continue
		}
		hourStart := ts.Truncate(time.Hour)
		datetime := hourStart.Format("2006-01-02 15:00:00")

		k := key{storeID: o.StoreID, datetime: datetime}
		acc, exists := accs[k]
		if !exists {
			acc = &hourlyAcc{}
			accs[k] = acc
		}
		acc.gmv = acc.gmv.Add(amount)
		acc.orderCount++
	}

	records := make([]metrics_model.HourlyStoreMetric, 0, len(accs))
	for k, acc := range accs {
		ts, err := time.Parse("2006-01-02 15:00:00", k.datetime)
		if err != nil {
			continue
		}
		gmv, _ := acc.gmv.Float64()
		records = append(records, metrics_model.HourlyStoreMetric{
			StoreID:    k.storeID,
			Datetime:   k.datetime,
			Hour:       ts.Hour(),
			DayOfWeek:  int(ts.Weekday()) + 1,
			GMV:        gmv,
			OrderCount: acc.orderCount,
			UpdatedAt:  now,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Datetime != records[j].Datetime {
			return records[i].Datetime < records[j].Datetime
		}
		return records[i].StoreID < records[j].StoreID
	})
	return records
}
