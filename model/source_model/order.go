package source_model

import "go.mongodb.org/mongo-driver/bson/primitive"

// SourceOrder 订单源集合中的原始订单文档
// amount 与 line_items 在源库里都是字符串，解析在聚合侧完成
type SourceOrder struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	StoreRef  string             `bson:"store_ref"`
	OrderTime string             `bson:"order_time"` // "YYYY-MM-DD HH:mm:ss"
	Amount    string             `bson:"amount"`     // 字符串编码的金额
	LineItems string             `bson:"line_items"` // JSON字符串 [{name,price,qty}]
}

// SourceStore 门店元数据文档
type SourceStore struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	StoreID     string             `bson:"store_id"`
	DisplayName string             `bson:"display_name"`
	PricingPlan bool               `bson:"pricing_plan"` // true 时营收计入 paid_amount
}

// JoinedOrder $lookup 门店元数据之后的订单视图，聚合折叠的输入
type JoinedOrder struct {
	StoreID     string `bson:"store_ref"`
	StoreName   string `bson:"store_name"`
	PricingPlan bool   `bson:"pricing_plan"`
	OrderTime   string `bson:"order_time"`
	Amount      string `bson:"amount"`
	LineItems   string `bson:"line_items"`
}
