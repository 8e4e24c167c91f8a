package repository

import (
	"context"
	"errors"

	"go-relief-hub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShareSubscriptionRepository 不做缓存, 每次读取都查询数据库
type ShareSubscriptionRepository struct {
	db *gorm.DB
}

func NewShareSubscriptionRepository(db *gorm.DB) *ShareSubscriptionRepository {
	return &ShareSubscriptionRepository{db: db}
}

func (r *ShareSubscriptionRepository) FindByShareWith(ctx context.Context, shareWith model.ShareWith) (*model.ShareSubscription, error) {
	var sub model.ShareSubscription
	err := r.db.WithContext(ctx).Where("share_with = ?", shareWith).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// Upsert 整体替换该分类指向的群组
func (r *ShareSubscriptionRepository) Upsert(ctx context.Context, shareWith model.ShareWith, groupID *uint) (*model.ShareSubscription, error) {
	sub := &model.ShareSubscription{ShareWith: shareWith, GroupID: groupID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "share_with"}},
		DoUpdates: clause.AssignmentColumns([]string{"group_id", "updated_at"}),
	}).Create(sub).Error
	if err != nil {
		return nil, err
	}
	return r.FindByShareWith(ctx, shareWith)
}

// Seed 为每个分类补齐一行空订阅, 已存在的行保持不变
func (r *ShareSubscriptionRepository) Seed(ctx context.Context) error {
	for _, key := range model.ShareWithChoices {
		sub := &model.ShareSubscription{ShareWith: key}
		err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(sub).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ShareSubscriptionRepository) List(ctx context.Context) ([]model.ShareSubscription, error) {
	var subs []model.ShareSubscription
	err := r.db.WithContext(ctx).Preload("Group").Order("share_with").Find(&subs).Error
	return subs, err
}
