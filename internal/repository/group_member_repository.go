package repository

import (
	"errors"

	"go-relief-hub/internal/model"
	"go-relief-hub/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GroupMemberRepository struct {
	db *gorm.DB
}

func NewGroupMemberRepository(db *gorm.DB) *GroupMemberRepository {
	return &GroupMemberRepository{db: db}
}

// 将用户添加到群组
func (r *GroupMemberRepository) AddMember(groupID, userID uint, role string) error {
	if role == "" {
		role = model.RoleMember
	}
	member := model.GroupMember{
		GroupID: groupID,
		UserID:  userID,
		Role:    role,
	}
	return r.db.Where(model.GroupMember{GroupID: groupID, UserID: userID}).FirstOrCreate(&member).Error
}

// 将用户从群组中移除
func (r *GroupMemberRepository) RemoveMember(groupID, userID uint) error {
	var member model.GroupMember
	err := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("member not found in group")
		}
		logger.L.Error("RemoveMember: failed to find member",
			zap.Uint("groupID", groupID),
			zap.Uint("userID", userID))
		return err
	}
	if member.Role == model.RoleOwner {
		return errors.New("cannot remove group owner")
	}

	return r.db.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&model.GroupMember{}).Error
}

// 查找特定群组的特定成员
func (r *GroupMemberRepository) FindMember(groupID, userID uint) (*model.GroupMember, error) {
	var member model.GroupMember
	err := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// 获取群组所有成员的ID列表
func (r *GroupMemberRepository) FindGroupMemberIDs(groupID uint) ([]uint, error) {
	var userIDs []uint
	err := r.db.Model(&model.GroupMember{}).Where("group_id = ?", groupID).Order("user_id").Pluck("user_id", &userIDs).Error
	return userIDs, err
}

// 获取群组成员的邮箱, 用于邮件通知
func (r *GroupMemberRepository) FindGroupMemberEmails(groupID uint) ([]string, error) {
	var emails []string
	err := r.db.Model(&model.User{}).
		Joins("JOIN group_members ON group_members.user_id = users.id").
		Where("group_members.group_id = ?", groupID).
		Order("users.id").
		Pluck("users.email", &emails).Error
	return emails, err
}
