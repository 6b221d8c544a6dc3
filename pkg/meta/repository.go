package meta

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrJobNotFound      = errors.New("export job not found")
	ErrConcurrentUpdate = errors.New("concurrent update detected (CAS failed)")
	ErrJobFinished      = errors.New("export job already finished")
)

// Repository 封装所有对 SQL 数据库的操作
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateJob 写入新任务，ID 为空时自动生成
func (r *Repository) CreateJob(ctx context.Context, job *ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = StatusPending
	}
	job.Version = 1

	if err := r.db.GetConn().WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create export job: %w", err)
	}
	return nil
}

func (r *Repository) GetJob(ctx context.Context, id string) (*ExportJob, error) {
	var job ExportJob
	err := r.db.GetConn().WithContext(ctx).
		Where("id = ?", id).
		First(&job).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FindByFingerprint 返回同一目标最近的一次任务
func (r *Repository) FindByFingerprint(ctx context.Context, fingerprint string) (*ExportJob, error) {
	var job ExportJob
	err := r.db.GetConn().WithContext(ctx).
		Where("fingerprint = ?", fingerprint).
		Order("created_at DESC").
		First(&job).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs 按创建时间倒序列出任务；status 为空表示不过滤
func (r *Repository) ListJobs(ctx context.Context, status JobStatus, limit int) ([]ExportJob, error) {
	var jobs []ExportJob
	q := r.db.GetConn().WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&jobs).Error
	return jobs, err
}

// UpdateStatus 原子更新状态 (CAS)
// oldVersion: 之前读到的版本号，不一致说明有人抢先改了
func (r *Repository) UpdateStatus(ctx context.Context, id string, status JobStatus, message string, oldVersion int64) error {
	return r.db.GetConn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current ExportJob
		if err := tx.Where("id = ?", id).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrJobNotFound
			}
			return err
		}
		if current.Status.Terminal() {
			return ErrJobFinished
		}

		updates := map[string]any{
			"status":     status,
			"error":      message,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		}
		if status.Terminal() {
			updates["finished_at"] = time.Now()
		}

		// SQL: UPDATE export_jobs SET ... WHERE id = ? AND version = ?
		result := tx.Model(&ExportJob{}).
			Where("id = ? AND version = ?", id, oldVersion).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentUpdate
		}
		return nil
	})
}

// FinishJob 读取当前版本后把任务标记为完成或失败
func (r *Repository) FinishJob(ctx context.Context, id string, jobErr error) error {
	job, err := r.GetJob(ctx, id)
	if err != nil {
		return err
	}
	status, message := StatusCompleted, ""
	if jobErr != nil {
		status, message = StatusFailed, jobErr.Error()
	}
	return r.UpdateStatus(ctx, id, status, message, job.Version)
}
