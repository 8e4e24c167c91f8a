package notify

import (
	"fmt"

	"go-relief-hub/internal/repository"
)

type repoDirectory struct {
	users   *repository.UserRepository
	members *repository.GroupMemberRepository
}

// NewDirectory 通过用户表和群组成员表查找收件人
func NewDirectory(users *repository.UserRepository, members *repository.GroupMemberRepository) Directory {
	return &repoDirectory{users: users, members: members}
}

func (d *repoDirectory) UserEmail(userID uint) (string, error) {
	u, err := d.users.FindByID(userID)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", fmt.Errorf("user %d not found", userID)
	}
	return u.Email, nil
}

func (d *repoDirectory) GroupMemberIDs(groupID uint) ([]uint, error) {
	return d.members.FindGroupMemberIDs(groupID)
}

func (d *repoDirectory) GroupMemberEmails(groupID uint) ([]string, error) {
	return d.members.FindGroupMemberEmails(groupID)
}
