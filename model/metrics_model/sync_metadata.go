package metrics_model

import "time"

// SyncMetadata 记录已完整同步过的自然日
// 仅在三张指标表都落库之后才写入
type SyncMetadata struct {
	Date     string    `json:"date" gorm:"column:date;primaryKey"`
	SyncedAt time.Time `json:"synced_at" gorm:"column:synced_at"`
}

func (SyncMetadata) TableName() string {
	return "sync_metadata"
}
