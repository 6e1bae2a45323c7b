package sync_service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-insight/model/source_model"
	"pos-insight/mongodb"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrSourceUnavailable 订单源数据库不可达
var ErrSourceUnavailable = errors.New("order source unavailable")

// OrderSource 订单源读取能力
// 规划器只依赖这个口子，单测用fixture实现替换Mongo
type OrderSource interface {
	// FetchOrders 拉取闭区间 [startDate, endDate] 内的订单，已join门店信息
	FetchOrders(ctx context.Context, startDate, endDate string) ([]source_model.JoinedOrder, error)
}

// MongoOrderSource 基于Mongo聚合管道的订单源实现
type MongoOrderSource struct {
	source *mongodb.Source
}

// NewMongoOrderSource 创建Mongo订单源
func NewMongoOrderSource(source *mongodb.Source) *MongoOrderSource {
	return &MongoOrderSource{source: source}
}

// FetchOrders 拉取窗口内订单
// $match 必须放在管道第一位且只匹配原始 order_time 字段——
// 先算派生字段再过滤会绕开索引触发全集合扫描
func (m *MongoOrderSource) FetchOrders(ctx context.Context, startDate, endDate string) ([]source_model.JoinedOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	pipeline := []bson.M{
		{"$match": bson.M{
			"order_time": bson.M{
				"$gte": startDate + " 00:00:00",
				"$lte": endDate + " 23:59:59",
			},
		}},
		{"$lookup": bson.M{
			"from":         m.source.StoresCollectionName(),
			"localField":   "store_ref",
			"foreignField": "store_id",
			"as":           "store",
		}},
		{"$unwind": bson.M{
			"path":                       "$store",
			"preserveNullAndEmptyArrays": true,
		}},
		{"$project": bson.M{
			"store_ref":  1,
			"order_time": 1,
			"amount":     1,
			"line_items": 1,
			"store_name": bson.M{"$ifNull": bson.A{"$store.display_name", UnknownStoreName}},
			"pricing_plan": bson.M{"$ifNull": bson.A{"$store.pricing_plan", false}},
		}},
	}

	cursor, err := m.source.Orders().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer cursor.Close(ctx)

	var orders []source_model.JoinedOrder
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return orders, nil
}

// EstimatedOrderCount 订单集合的估算行数（运维观测用）
func (m *MongoOrderSource) EstimatedOrderCount(ctx context.Context) (int64, error) {
	count, err := m.source.Orders().EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return count, nil
}

// EstimatedStoreCount 门店集合的估算行数（运维观测用）
func (m *MongoOrderSource) EstimatedStoreCount(ctx context.Context) (int64, error) {
	count, err := m.source.Stores().EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return count, nil
}
