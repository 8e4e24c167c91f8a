package repository

import (
	"context"
	"errors"
	"fmt"

	"go-relief-hub/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FlashUpdateRepository struct {
	db *gorm.DB
}

func NewFlashUpdateRepository(db *gorm.DB) *FlashUpdateRepository {
	return &FlashUpdateRepository{db: db}
}

// 返回绑定到事务的副本
func (r *FlashUpdateRepository) WithTx(tx *gorm.DB) *FlashUpdateRepository {
	return &FlashUpdateRepository{db: tx}
}

type FlashUpdateFilter struct {
	HazardTypeID *uint
	Limit        int
	Offset       int
}

// Create 写入快讯及其子记录; 地区和行动只建立关联, 不写目录表
func (r *FlashUpdateRepository) Create(ctx context.Context, fu *model.FlashUpdate) error {
	db := r.db.WithContext(ctx)
	children := detachChildren(fu)
	if err := db.Omit(clause.Associations).Create(fu).Error; err != nil {
		return fmt.Errorf("create flash update: %w", err)
	}
	return r.createChildren(db, fu, children)
}

// Update 保存主字段并整体替换子记录
func (r *FlashUpdateRepository) Update(ctx context.Context, fu *model.FlashUpdate, replaceChildren bool) error {
	db := r.db.WithContext(ctx)
	children := detachChildren(fu)
	if err := db.Omit(clause.Associations).Save(fu).Error; err != nil {
		return fmt.Errorf("update flash update: %w", err)
	}
	if !replaceChildren {
		fu.CountryDistricts, fu.References, fu.ActionsTaken = children.countryDistricts, children.references, children.actionsTaken
		return nil
	}
	if err := r.deleteChildren(db, fu.ID); err != nil {
		return err
	}
	return r.createChildren(db, fu, children)
}

type flashChildren struct {
	countryDistricts []model.FlashCountryDistrict
	references       []model.FlashReference
	actionsTaken     []model.FlashActionTaken
}

func detachChildren(fu *model.FlashUpdate) flashChildren {
	c := flashChildren{
		countryDistricts: fu.CountryDistricts,
		references:       fu.References,
		actionsTaken:     fu.ActionsTaken,
	}
	fu.CountryDistricts, fu.References, fu.ActionsTaken = nil, nil, nil
	return c
}

func (r *FlashUpdateRepository) createChildren(db *gorm.DB, fu *model.FlashUpdate, c flashChildren) error {
	for i := range c.countryDistricts {
		cd := &c.countryDistricts[i]
		cd.ID = 0
		cd.FlashUpdateID = fu.ID
		if err := db.Omit("Country", "Districts.*").Create(cd).Error; err != nil {
			return fmt.Errorf("create country district: %w", err)
		}
	}
	for i := range c.references {
		ref := &c.references[i]
		ref.ID = 0
		ref.FlashUpdateID = fu.ID
		if err := db.Create(ref).Error; err != nil {
			return fmt.Errorf("create reference: %w", err)
		}
	}
	for i := range c.actionsTaken {
		at := &c.actionsTaken[i]
		at.ID = 0
		at.FlashUpdateID = fu.ID
		if err := db.Omit("Actions.*").Create(at).Error; err != nil {
			return fmt.Errorf("create action taken: %w", err)
		}
	}
	fu.CountryDistricts, fu.References, fu.ActionsTaken = c.countryDistricts, c.references, c.actionsTaken
	return nil
}

// 删除子记录及多对多关联行
func (r *FlashUpdateRepository) deleteChildren(db *gorm.DB, flashUpdateID uint) error {
	var cds []model.FlashCountryDistrict
	if err := db.Where("flash_update_id = ?", flashUpdateID).Find(&cds).Error; err != nil {
		return err
	}
	for i := range cds {
		if err := db.Select("Districts").Delete(&cds[i]).Error; err != nil {
			return fmt.Errorf("delete country district: %w", err)
		}
	}

	var ats []model.FlashActionTaken
	if err := db.Where("flash_update_id = ?", flashUpdateID).Find(&ats).Error; err != nil {
		return err
	}
	for i := range ats {
		if err := db.Select("Actions").Delete(&ats[i]).Error; err != nil {
			return fmt.Errorf("delete action taken: %w", err)
		}
	}

	return db.Where("flash_update_id = ?", flashUpdateID).Delete(&model.FlashReference{}).Error
}

// Delete 连同导出任务和分享记录一起删除
func (r *FlashUpdateRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := r.deleteChildren(db, id); err != nil {
		return err
	}
	if err := db.Where("subject_id = ?", id).Delete(&model.ExportJob{}).Error; err != nil {
		return fmt.Errorf("delete export jobs: %w", err)
	}

	var events []model.ShareEvent
	if err := db.Where("flash_update_id = ?", id).Find(&events).Error; err != nil {
		return err
	}
	for i := range events {
		if err := db.Select("Recipients", "Groups").Delete(&events[i]).Error; err != nil {
			return fmt.Errorf("delete share event: %w", err)
		}
	}

	return db.Delete(&model.FlashUpdate{}, id).Error
}

func (r *FlashUpdateRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("HazardType").
		Preload("CountryDistricts.Country").
		Preload("CountryDistricts.Districts").
		Preload("References").
		Preload("ActionsTaken.Actions")
}

// FindByID 每次都从数据库读取最新的快讯及子记录
func (r *FlashUpdateRepository) FindByID(ctx context.Context, id uint) (*model.FlashUpdate, error) {
	var fu model.FlashUpdate
	err := r.preloaded(ctx).First(&fu, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &fu, nil
}

func (r *FlashUpdateRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.FlashUpdate{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// List 按创建时间倒序分页
func (r *FlashUpdateRepository) List(ctx context.Context, filter FlashUpdateFilter) ([]model.FlashUpdate, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.FlashUpdate{})
	if filter.HazardTypeID != nil {
		q = q.Where("hazard_type_id = ?", *filter.HazardTypeID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var items []model.FlashUpdate
	err := q.Preload("HazardType").
		Preload("CountryDistricts.Districts").
		Preload("ActionsTaken.Actions").
		Order("created_at DESC").Order("id DESC").
		Find(&items).Error
	return items, total, err
}
