package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-relief-hub/internal/model"

	"gorm.io/gorm"
)

type ExportJobRepository struct {
	db *gorm.DB
}

func NewExportJobRepository(db *gorm.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

func (r *ExportJobRepository) WithTx(tx *gorm.DB) *ExportJobRepository {
	return &ExportJobRepository{db: tx}
}

// Create 插入新任务; 同一 (主体, 类型) 已有未失败任务时返回 gorm.ErrDuplicatedKey
func (r *ExportJobRepository) Create(ctx context.Context, job *model.ExportJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *ExportJobRepository) FindByID(ctx context.Context, id string) (*model.ExportJob, error) {
	var job model.ExportJob
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// FindActive 返回该 (主体, 类型) 当前 pending 或 ready 的任务
func (r *ExportJobRepository) FindActive(ctx context.Context, subjectID uint, kind string) (*model.ExportJob, error) {
	var job model.ExportJob
	err := r.db.WithContext(ctx).
		Where("active_key = ?", model.ExportActiveKey(subjectID, kind)).
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// MarkReady 只在任务仍为 pending 时生效, 返回是否发生了状态迁移
func (r *ExportJobRepository) MarkReady(ctx context.Context, id, url string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.ExportJob{}).
		Where("id = ? AND status = ?", id, model.ExportStatusPending).
		Updates(map[string]interface{}{
			"status": model.ExportStatusReady,
			"url":    url,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark export job ready: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkFailed 记录错误并释放 active_key, 让下一次请求可以新建任务
func (r *ExportJobRepository) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.ExportJob{}).
		Where("id = ? AND status = ?", id, model.ExportStatusPending).
		Updates(map[string]interface{}{
			"status":     model.ExportStatusFailed,
			"error":      reason,
			"active_key": nil,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark export job failed: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// FailStale 把创建时间早于before且仍为pending的任务标记为失败并释放 active_key, 返回处理的行数
func (r *ExportJobRepository) FailStale(ctx context.Context, before time.Time, reason string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.ExportJob{}).
		Where("status = ? AND created_at < ?", model.ExportStatusPending, before).
		Updates(map[string]interface{}{
			"status":     model.ExportStatusFailed,
			"error":      reason,
			"active_key": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("fail stale export jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// 按创建顺序列出某主体的全部任务
func (r *ExportJobRepository) ListBySubject(ctx context.Context, subjectID uint) ([]model.ExportJob, error) {
	var jobs []model.ExportJob
	err := r.db.WithContext(ctx).Where("subject_id = ?", subjectID).Order("created_at").Order("id").Find(&jobs).Error
	return jobs, err
}

// status为空时列出全部; limit<=0 表示不限
func (r *ExportJobRepository) ListByStatus(ctx context.Context, status model.ExportStatus, limit int) ([]model.ExportJob, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var jobs []model.ExportJob
	err := q.Find(&jobs).Error
	return jobs, err
}
