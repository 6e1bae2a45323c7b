package sync_service

import (
	"encoding/json"
	"strconv"
	"strings"
)

// LineItem 订单内单条菜单项
type LineItem struct {
	Name  string
	Price float64
	Qty   float64
}

// LineItemsResult 行项目解码结果
// 源库把行项目存成内嵌JSON字符串，历史数据里存在坏数据，
// 解码失败是常态分支而不是异常：OK=false 时该订单跳过菜单统计
type LineItemsResult struct {
	OK    bool
	Items []LineItem
}

// ParseLineItems 解码订单的行项目字符串
// 期望输入是 [{name,price,qty}] 的JSON数组；解析失败或非数组一律
// 返回 OK=false。price/qty 宽松解析，非数字缺省为0。
func ParseLineItems(raw string) LineItemsResult {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return LineItemsResult{}
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return LineItemsResult{}
	}

	items := make([]LineItem, 0, len(decoded))
	for _, entry := range decoded {
		items = append(items, LineItem{
			Name:  lenientString(entry["name"]),
			Price: lenientNumber(entry["price"]),
			Qty:   lenientNumber(entry["qty"]),
		})
	}
	return LineItemsResult{OK: true, Items: items}
}

func lenientString(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// lenientNumber 历史数据里数字字段可能是数字也可能是字符串
func lenientNumber(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return parsed
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
