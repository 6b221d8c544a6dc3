package meta

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// JobStatus 是导出任务的状态
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Terminal 表示任务已经结束，不会再变化
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ExportJob 记录一次金字塔导出
type ExportJob struct {
	// ID 是 UUID 字符串
	ID string `gorm:"primaryKey;type:char(36)"`

	// Fingerprint 是 sink 描述的 SHA-256，用于查找同一目标的历史任务
	Fingerprint string `gorm:"index;type:char(64);not null"`

	Format     string `gorm:"type:varchar(32);not null"`
	StorageURL string `gorm:"type:text"`
	TargetPath string `gorm:"type:text;not null"`
	NumLevels  int

	Status JobStatus `gorm:"index;type:varchar(16);not null"`
	Error  string    `gorm:"type:text"`

	// Descriptor 是 sink 描述的 CBOR 编码
	Descriptor []byte

	// Options 是构建时的格式选项快照
	Options datatypes.JSON

	// Version 用于乐观锁 (CAS)，每次状态更新 +1
	Version int64 `gorm:"default:1"`

	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time
	FinishedAt *time.Time
}

// TableName 强制指定表名
func (ExportJob) TableName() string {
	return "export_jobs"
}

// ParseJobStatus 解析状态字符串；空字符串表示不过滤
func ParseJobStatus(raw string) (JobStatus, error) {
	switch s := JobStatus(raw); s {
	case "", StatusPending, StatusRunning, StatusCompleted, StatusFailed:
		return s, nil
	default:
		return "", fmt.Errorf("unknown job status %q", raw)
	}
}
