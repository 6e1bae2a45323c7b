package mongodb

import (
	"context"
	"fmt"
	"log"
	"time"

	"pos-insight/pkg/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Source 订单源数据库句柄，组合根构造后注入聚合服务
type Source struct {
	client *mongo.Client
	cfg    config.MongoDBConfig
}

// Connect 连接订单源数据库并校验可达性
func Connect(cfg config.MongoDBConfig) (*Source, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect order source: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping order source: %w", err)
	}

	log.Printf("订单源数据库已连接: %s/%s", cfg.URI, cfg.Database)
	return &Source{client: client, cfg: cfg}, nil
}

// Orders 订单集合
func (s *Source) Orders() *mongo.Collection {
	return s.client.Database(s.cfg.Database).Collection(s.cfg.OrdersCollection)
}

// Stores 门店元数据集合
func (s *Source) Stores() *mongo.Collection {
	return s.client.Database(s.cfg.Database).Collection(s.cfg.StoresCollection)
}

// StoresCollectionName $lookup 时使用的集合名
func (s *Source) StoresCollectionName() string {
	return s.cfg.StoresCollection
}

// Ping 健康检查
func (s *Source) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close 断开连接
func (s *Source) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
