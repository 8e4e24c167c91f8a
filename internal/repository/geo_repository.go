package repository

import (
	"context"

	"go-relief-hub/internal/model"

	"gorm.io/gorm"
)

// GeoRepository 读取国家、地区、灾害类型和行动目录
type GeoRepository struct {
	db *gorm.DB
}

func NewGeoRepository(db *gorm.DB) *GeoRepository {
	return &GeoRepository{db: db}
}

func (r *GeoRepository) CreateCountry(ctx context.Context, c *model.Country) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *GeoRepository) CreateDistrict(ctx context.Context, d *model.District) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *GeoRepository) CreateDisasterType(ctx context.Context, dt *model.DisasterType) error {
	return r.db.WithContext(ctx).Create(dt).Error
}

func (r *GeoRepository) CreateFlashAction(ctx context.Context, a *model.FlashAction) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// 返回存在的国家ID集合
func (r *GeoRepository) CountryIDs(ctx context.Context, ids []uint) (map[uint]bool, error) {
	found := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var existing []uint
	if err := r.db.WithContext(ctx).Model(&model.Country{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return nil, err
	}
	for _, id := range existing {
		found[id] = true
	}
	return found, nil
}

// 返回 地区ID -> 所属国家ID
func (r *GeoRepository) DistrictCountries(ctx context.Context, ids []uint) (map[uint]uint, error) {
	result := make(map[uint]uint, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var districts []model.District
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&districts).Error; err != nil {
		return nil, err
	}
	for _, d := range districts {
		result[d.ID] = d.CountryID
	}
	return result, nil
}

func (r *GeoRepository) DisasterTypeExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DisasterType{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *GeoRepository) FlashActionIDs(ctx context.Context, ids []uint) (map[uint]bool, error) {
	found := make(map[uint]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var existing []uint
	if err := r.db.WithContext(ctx).Model(&model.FlashAction{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return nil, err
	}
	for _, id := range existing {
		found[id] = true
	}
	return found, nil
}
