package service

import (
	"errors"
	"fmt"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/repository"
)

var (
	ErrGroupNameTaken = errors.New("a group with this name already exists")
	ErrAlreadyMember  = errors.New("user is already a member of this group")
)

type CreateGroupRequest struct {
	Name      string `json:"name" binding:"required,min=2,max=100"`
	MemberIDs []uint `json:"member_ids"`
}

type AddGroupMemberRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

// GroupService 管理通知接收群组
type GroupService struct {
	groupRepo  *repository.GroupRepository
	memberRepo *repository.GroupMemberRepository
	userRepo   *repository.UserRepository
}

func NewGroupService(groupRepo *repository.GroupRepository, memberRepo *repository.GroupMemberRepository, userRepo *repository.UserRepository) *GroupService {
	return &GroupService{groupRepo: groupRepo, memberRepo: memberRepo, userRepo: userRepo}
}

// CreateGroup 创建群组, 创建者成为owner, member_ids中的用户成为普通成员
func (s *GroupService) CreateGroup(ownerID uint, req CreateGroupRequest) (*model.Group, error) {
	existing, err := s.groupRepo.FindByName(req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrGroupNameTaken
	}

	memberIDs := uniqueIDs(req.MemberIDs)
	users, err := s.userRepo.FindByIDs(memberIDs)
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(memberIDs, userIDsOf(users)); len(missing) > 0 {
		return nil, NewValidationError("member_ids", fmt.Sprintf("unknown user ids %v", missing))
	}

	group := &model.Group{Name: req.Name, OwnerID: ownerID}
	if err := s.groupRepo.Create(group); err != nil {
		return nil, err
	}
	for _, id := range memberIDs {
		if id == ownerID {
			continue
		}
		if err := s.memberRepo.AddMember(group.ID, id, model.RoleMember); err != nil {
			return nil, err
		}
	}
	return s.groupRepo.FindByID(group.ID)
}

// ListGroups 管理员看到全部群组, 其他用户只看到自己所在的群组
func (s *GroupService) ListGroups(user *model.User) ([]model.Group, error) {
	if user.IsStaff {
		return s.groupRepo.List()
	}
	return s.groupRepo.FindUserGroups(user.ID)
}

func (s *GroupService) GetGroupInfo(groupID uint, requester *model.User) (*model.Group, error) {
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, notFound("group", groupID)
	}
	if requester.IsStaff {
		return group, nil
	}
	for _, m := range group.Members {
		if m.UserID == requester.ID {
			return group, nil
		}
	}
	return nil, fmt.Errorf("you are not a member of this group: %w", ErrForbidden)
}

// AddGroupMember 只有owner/admin或管理员可以加人
func (s *GroupService) AddGroupMember(groupID uint, req AddGroupMemberRequest, requester *model.User) error {
	if err := s.requireManager(groupID, requester); err != nil {
		return err
	}

	target, err := s.userRepo.FindByID(req.UserID)
	if err != nil {
		return err
	}
	if target == nil {
		return notFound("user", req.UserID)
	}

	member, err := s.memberRepo.FindMember(groupID, req.UserID)
	if err != nil {
		return err
	}
	if member != nil {
		return ErrAlreadyMember
	}

	role := req.Role
	switch role {
	case "", model.RoleMember, model.RoleAdmin:
	default:
		return NewValidationError("role", fmt.Sprintf("%q is not a valid role", role))
	}
	return s.memberRepo.AddMember(groupID, req.UserID, role)
}

func (s *GroupService) RemoveGroupMember(groupID, targetUserID uint, requester *model.User) error {
	if requester.ID != targetUserID {
		if err := s.requireManager(groupID, requester); err != nil {
			return err
		}
	}
	member, err := s.memberRepo.FindMember(groupID, targetUserID)
	if err != nil {
		return err
	}
	if member == nil {
		return notFound("group member", targetUserID)
	}
	if member.Role == model.RoleOwner {
		return fmt.Errorf("cannot remove the group owner: %w", ErrForbidden)
	}
	return s.memberRepo.RemoveMember(groupID, targetUserID)
}

func (s *GroupService) requireManager(groupID uint, requester *model.User) error {
	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return notFound("group", groupID)
	}
	if requester.IsStaff {
		return nil
	}
	member, err := s.memberRepo.FindMember(groupID, requester.ID)
	if err != nil {
		return err
	}
	if member == nil || (member.Role != model.RoleOwner && member.Role != model.RoleAdmin) {
		return fmt.Errorf("only the group owner or admin can manage members: %w", ErrForbidden)
	}
	return nil
}
