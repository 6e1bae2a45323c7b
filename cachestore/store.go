package cachestore

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"pos-insight/model/metrics_model"
	"pos-insight/pkg/config"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	// ErrInvalidDateRange 结束日期早于开始日期，任何IO之前拒绝
	ErrInvalidDateRange = errors.New("invalid date range: end before start")
)

const upsertBatchSize = 200

// Store 本地缓存库句柄，由组合根构造后注入各服务
// 所有指标表与同步元数据只经由本句柄读写
type Store struct {
	db *gorm.DB
}

// CacheStats 各表行数与整体日期范围
type CacheStats struct {
	DailyStoreRecords int64      `json:"daily_store_records"`
	DailyMenuRecords  int64      `json:"daily_menu_records"`
	HourlyRecords     int64      `json:"hourly_records"`
	DateRange         *DateRange `json:"date_range"` // 缓存为空时为 nil
}

// DateRange 闭区间日期范围
type DateRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// Open 打开（必要时创建）缓存库并建表
// WAL 模式保证批量写入事务不阻塞并发读
func Open(cfg config.CacheConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", cfg.DBPath, cfg.BusyTimeout)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "info":
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			Colorful:                  false,
			IgnoreRecordNotFoundError: true,
			LogLevel:                  logLevel,
		},
	)

	openDb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	// SQLite 单写者，连接数压到1避免 SQLITE_BUSY
	sqlDB, err := openDb.DB()
	if err != nil {
		return nil, fmt.Errorf("cache db handle: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)

	if err := openDb.AutoMigrate(
		&metrics_model.DailyStoreMetric{},
		&metrics_model.DailyStoreMenuMetric{},
		&metrics_model.HourlyStoreMetric{},
		&metrics_model.SyncMetadata{},
	); err != nil {
		return nil, fmt.Errorf("migrate cache tables: %w", err)
	}

	log.Printf("缓存库已就绪: %s (WAL)", cfg.DBPath)
	return &Store{db: openDb}, nil
}

// Close 关闭底层连接
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertDailyStore 批量写入门店日指标
// 按 (store_id, date) 整行替换，单事务内全部成功或全部回滚
func (s *Store) UpsertDailyStore(records []metrics_model.DailyStoreMetric) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "date"}},
			UpdateAll: true,
		}).CreateInBatches(records, upsertBatchSize).Error
	})
}

// UpsertDailyStoreMenu 批量写入门店菜单日指标，替换语义同上
func (s *Store) UpsertDailyStoreMenu(records []metrics_model.DailyStoreMenuMetric) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "menu_label"}, {Name: "date"}},
			UpdateAll: true,
		}).CreateInBatches(records, upsertBatchSize).Error
	})
}

// UpsertHourlyStore 批量写入门店小时指标，替换语义同上
func (s *Store) UpsertHourlyStore(records []metrics_model.HourlyStoreMetric) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "datetime"}},
			UpdateAll: true,
		}).CreateInBatches(records, upsertBatchSize).Error
	})
}

// QueryDailyStore 闭区间日期扫描门店日指标，可按门店集合过滤，按日期升序
func (s *Store) QueryDailyStore(startDate, endDate string, storeIDs []string) ([]metrics_model.DailyStoreMetric, error) {
	if err := checkRange(startDate, endDate); err != nil {
		return nil, err
	}
	var rows []metrics_model.DailyStoreMetric
	query := s.db.Where("date BETWEEN ? AND ?", startDate, endDate)
	if len(storeIDs) > 0 {
		query = query.Where("store_id IN ?", storeIDs)
	}
	err := query.Order("date ASC").Find(&rows).Error
	return rows, err
}

// QueryDailyStoreMenu 闭区间日期扫描菜单日指标
func (s *Store) QueryDailyStoreMenu(startDate, endDate string, storeIDs []string) ([]metrics_model.DailyStoreMenuMetric, error) {
	if err := checkRange(startDate, endDate); err != nil {
		return nil, err
	}
	var rows []metrics_model.DailyStoreMenuMetric
	query := s.db.Where("date BETWEEN ? AND ?", startDate, endDate)
	if len(storeIDs) > 0 {
		query = query.Where("store_id IN ?", storeIDs)
	}
	err := query.Order("date ASC").Find(&rows).Error
	return rows, err
}

// QueryHourlyStore 闭区间日期扫描小时指标
func (s *Store) QueryHourlyStore(startDate, endDate string, storeIDs []string) ([]metrics_model.HourlyStoreMetric, error) {
	if err := checkRange(startDate, endDate); err != nil {
		return nil, err
	}
	var rows []metrics_model.HourlyStoreMetric
	query := s.db.Where("datetime BETWEEN ? AND ?", startDate+" 00:00:00", endDate+" 23:59:59")
	if len(storeIDs) > 0 {
		query = query.Where("store_id IN ?", storeIDs)
	}
	err := query.Order("datetime ASC").Find(&rows).Error
	return rows, err
}

// GetCacheStats 统计各表行数与日期范围，空缓存时 DateRange 为 nil
func (s *Store) GetCacheStats() (*CacheStats, error) {
	stats := &CacheStats{}

	if err := s.db.Model(&metrics_model.DailyStoreMetric{}).Count(&stats.DailyStoreRecords).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&metrics_model.DailyStoreMenuMetric{}).Count(&stats.DailyMenuRecords).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&metrics_model.HourlyStoreMetric{}).Count(&stats.HourlyRecords).Error; err != nil {
		return nil, err
	}

	// 日期范围取三张表的总最早/最晚；正常同步下菜单和小时表的日期是
	// 日表的子集，这里不依赖这个前提
	type tableBounds struct {
		count int64
		model interface{}
		expr  string
	}
	for _, tb := range []tableBounds{
		{stats.DailyStoreRecords, &metrics_model.DailyStoreMetric{}, "MIN(date) as min, MAX(date) as max"},
		{stats.DailyMenuRecords, &metrics_model.DailyStoreMenuMetric{}, "MIN(date) as min, MAX(date) as max"},
		{stats.HourlyRecords, &metrics_model.HourlyStoreMetric{}, "MIN(substr(datetime, 1, 10)) as min, MAX(substr(datetime, 1, 10)) as max"},
	} {
		if tb.count == 0 {
			continue
		}
		var bounds struct {
			Min string
			Max string
		}
		if err := s.db.Model(tb.model).Select(tb.expr).Scan(&bounds).Error; err != nil {
			return nil, err
		}
		if stats.DateRange == nil {
			stats.DateRange = &DateRange{Min: bounds.Min, Max: bounds.Max}
			continue
		}
		if bounds.Min < stats.DateRange.Min {
			stats.DateRange.Min = bounds.Min
		}
		if bounds.Max > stats.DateRange.Max {
			stats.DateRange.Max = bounds.Max
		}
	}

	return stats, nil
}

// IsEmpty 缓存是否为空（用于冷启动判断）
func (s *Store) IsEmpty() (bool, error) {
	var count int64
	if err := s.db.Model(&metrics_model.DailyStoreMetric{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// GetSyncedDates 已完整同步的全部日期，升序
func (s *Store) GetSyncedDates() ([]string, error) {
	var dates []string
	err := s.db.Model(&metrics_model.SyncMetadata{}).
		Order("date ASC").
		Pluck("date", &dates).Error
	return dates, err
}

// IsDateSynced 查询某日是否已完整同步
func (s *Store) IsDateSynced(date string) (bool, error) {
	var count int64
	err := s.db.Model(&metrics_model.SyncMetadata{}).
		Where("date = ?", date).
		Count(&count).Error
	return count > 0, err
}

// MarkDatesSynced 标记日期已完整同步
// 调用方保证此时三张指标表都已落库
func (s *Store) MarkDatesSynced(dates []string) error {
	if len(dates) == 0 {
		return nil
	}
	now := time.Now()
	records := make([]metrics_model.SyncMetadata, 0, len(dates))
	for _, d := range dates {
		records = append(records, metrics_model.SyncMetadata{Date: d, SyncedAt: now})
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			UpdateAll: true,
		}).CreateInBatches(records, upsertBatchSize).Error
	})
}

// ReplaceDateRows 单事务内整日替换：清掉该日三张表旧行，写入新行并标记已同步
// 事务中途失败时整体回滚，旧行和元数据保持原状；调用方必须在拉源、
// 聚合全部成功之后才调用，失败的拉取不会触碰缓存
func (s *Store) ReplaceDateRows(date string, daily []metrics_model.DailyStoreMetric, menu []metrics_model.DailyStoreMenuMetric, hourly []metrics_model.HourlyStoreMetric) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("date = ?", date).Delete(&metrics_model.DailyStoreMetric{}).Error; err != nil {
			return err
		}
		if err := tx.Where("date = ?", date).Delete(&metrics_model.DailyStoreMenuMetric{}).Error; err != nil {
			return err
		}
		if err := tx.Where("datetime BETWEEN ? AND ?", date+" 00:00:00", date+" 23:59:59").
			Delete(&metrics_model.HourlyStoreMetric{}).Error; err != nil {
			return err
		}

		if len(daily) > 0 {
			if err := tx.CreateInBatches(daily, upsertBatchSize).Error; err != nil {
				return err
			}
		}
		if len(menu) > 0 {
			if err := tx.CreateInBatches(menu, upsertBatchSize).Error; err != nil {
				return err
			}
		}
		if len(hourly) > 0 {
			if err := tx.CreateInBatches(hourly, upsertBatchSize).Error; err != nil {
				return err
			}
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			UpdateAll: true,
		}).Create(&metrics_model.SyncMetadata{Date: date, SyncedAt: time.Now()}).Error
	})
}

func checkRange(startDate, endDate string) error {
	if endDate < startDate {
		return ErrInvalidDateRange
	}
	return nil
}
