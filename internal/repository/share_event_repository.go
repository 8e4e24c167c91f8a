package repository

import (
	"context"
	"errors"
	"fmt"

	"go-relief-hub/internal/model"

	"gorm.io/gorm"
)

type ShareEventRepository struct {
	db *gorm.DB
}

func NewShareEventRepository(db *gorm.DB) *ShareEventRepository {
	return &ShareEventRepository{db: db}
}

func (r *ShareEventRepository) WithTx(tx *gorm.DB) *ShareEventRepository {
	return &ShareEventRepository{db: tx}
}

// Create 只写入关联行, 不更新用户和群组本身
func (r *ShareEventRepository) Create(ctx context.Context, event *model.ShareEvent) error {
	err := r.db.WithContext(ctx).
		Omit("FlashUpdate", "Recipients.*", "Groups.*").
		Create(event).Error
	if err != nil {
		return fmt.Errorf("create share event: %w", err)
	}
	return nil
}

func (r *ShareEventRepository) FindByID(ctx context.Context, id uint) (*model.ShareEvent, error) {
	var event model.ShareEvent
	err := r.db.WithContext(ctx).Preload("Recipients").Preload("Groups").First(&event, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// 记录本次分享的附件结果, url 与 errMsg 二选一
func (r *ShareEventRepository) SetArtifact(ctx context.Context, id uint, url, errMsg *string) error {
	return r.db.WithContext(ctx).Model(&model.ShareEvent{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"artifact_url":   url,
			"artifact_error": errMsg,
		}).Error
}

func (r *ShareEventRepository) ListBySubject(ctx context.Context, flashUpdateID uint) ([]model.ShareEvent, error) {
	var events []model.ShareEvent
	err := r.db.WithContext(ctx).Preload("Recipients").Preload("Groups").
		Where("flash_update_id = ?", flashUpdateID).
		Order("created_at").Order("id").
		Find(&events).Error
	return events, err
}
