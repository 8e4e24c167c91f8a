package repository

import (
	"errors"

	"go-relief-hub/internal/model"

	"gorm.io/gorm"
)

type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// 创建新群组，并自动将创建者添加为成员
func (r *GroupRepository) Create(group *model.Group) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		ownerMember := &model.GroupMember{
			GroupID: group.ID,
			UserID:  group.OwnerID,
			Role:    model.RoleOwner,
		}
		return tx.Create(ownerMember).Error
	})
}

// 根据ID查找群组，并预加载成员和用户信息
func (r *GroupRepository) FindByID(groupID uint) (*model.Group, error) {
	var group model.Group
	err := r.db.Preload("Members").Preload("Members.User").Preload("Owner").First(&group, groupID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // group not found
		}
		return nil, err
	}
	return &group, nil
}

// 批量查找群组, 不存在的ID被忽略
func (r *GroupRepository) FindByIDs(ids []uint) ([]model.Group, error) {
	var groups []model.Group
	if len(ids) == 0 {
		return groups, nil
	}
	err := r.db.Where("id IN ?", ids).Order("id").Find(&groups).Error
	return groups, err
}

// 查找用户所属的所有群组
func (r *GroupRepository) FindUserGroups(userID uint) ([]model.Group, error) {
	var groups []model.Group
	err := r.db.Joins("JOIN group_members on groups.id = group_members.group_id").
		Where("group_members.user_id = ?", userID).
		Preload("Owner").
		Order("groups.created_at DESC").
		Find(&groups).Error
	return groups, err
}

// 根据名称查找群组
func (r *GroupRepository) FindByName(name string) (*model.Group, error) {
	var group model.Group
	err := r.db.Where("name = ?", name).First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// 列出全部群组, 供管理员选择订阅目标
func (r *GroupRepository) List() ([]model.Group, error) {
	var groups []model.Group
	err := r.db.Preload("Owner").Order("name").Find(&groups).Error
	return groups, err
}
