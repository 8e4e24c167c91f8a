package repository

import (
	"testing"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestGroups(t *testing.T) (*gorm.DB, *GroupRepository, *GroupMemberRepository) {
	conn := testsupport.NewDB(t)
	return conn, NewGroupRepository(conn), NewGroupMemberRepository(conn)
}

func TestGroupRepository_Create(t *testing.T) {
	conn, groupRepo, memberRepo := setupTestGroups(t)
	owner := testsupport.CreateUser(t, conn, "owner", false)

	group := &model.Group{Name: "secretariat", OwnerID: owner.ID}
	require.NoError(t, groupRepo.Create(group))
	assert.NotZero(t, group.ID)

	member, err := memberRepo.FindMember(group.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, member, "owner should be added as member")
	assert.Equal(t, model.RoleOwner, member.Role)
}

func TestGroupRepository_Create_UniqueConstraint(t *testing.T) {
	conn, groupRepo, _ := setupTestGroups(t)
	owner := testsupport.CreateUser(t, conn, "owner", false)

	require.NoError(t, groupRepo.Create(&model.Group{Name: "unique", OwnerID: owner.ID}))
	err := groupRepo.Create(&model.Group{Name: "unique", OwnerID: owner.ID})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestGroupRepository_FindByID(t *testing.T) {
	conn, groupRepo, _ := setupTestGroups(t)
	owner := testsupport.CreateUser(t, conn, "owner", false)
	member := testsupport.CreateUser(t, conn, "member", false)
	g := testsupport.CreateGroup(t, conn, "g", owner.ID, member.ID)

	found, err := groupRepo.FindByID(g.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "owner", found.Owner.Username)
	require.Len(t, found.Members, 2)
	for _, m := range found.Members {
		assert.NotEmpty(t, m.User.Username)
	}

	missing, err := groupRepo.FindByID(9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGroupRepository_FindUserGroups(t *testing.T) {
	conn, groupRepo, _ := setupTestGroups(t)
	alice := testsupport.CreateUser(t, conn, "alice", false)
	bob := testsupport.CreateUser(t, conn, "bob", false)
	testsupport.CreateGroup(t, conn, "a1", alice.ID)
	testsupport.CreateGroup(t, conn, "a2", alice.ID, bob.ID)
	testsupport.CreateGroup(t, conn, "b1", bob.ID)

	groups, err := groupRepo.FindUserGroups(alice.ID)
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	groups, err = groupRepo.FindUserGroups(bob.ID)
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	all, err := groupRepo.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a1", all[0].Name)
}

func TestGroupRepository_FindByName(t *testing.T) {
	conn, groupRepo, _ := setupTestGroups(t)
	owner := testsupport.CreateUser(t, conn, "owner", false)
	g := testsupport.CreateGroup(t, conn, "donors", owner.ID)

	found, err := groupRepo.FindByName("donors")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, g.ID, found.ID)

	found, err = groupRepo.FindByName("nope")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestGroupMemberRepository_Members(t *testing.T) {
	conn, _, memberRepo := setupTestGroups(t)
	owner := testsupport.CreateUser(t, conn, "owner", false)
	alice := testsupport.CreateUser(t, conn, "alice", false)
	g := testsupport.CreateGroup(t, conn, "g", owner.ID)

	require.NoError(t, memberRepo.AddMember(g.ID, alice.ID, ""))
	require.NoError(t, memberRepo.AddMember(g.ID, alice.ID, model.RoleAdmin))
	m, err := memberRepo.FindMember(g.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, m.Role)

	ids, err := memberRepo.FindGroupMemberIDs(g.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{owner.ID, alice.ID}, ids)

	emails, err := memberRepo.FindGroupMemberEmails(g.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"owner@example.org", "alice@example.org"}, emails)

	assert.Error(t, memberRepo.RemoveMember(g.ID, owner.ID))
	require.NoError(t, memberRepo.RemoveMember(g.ID, alice.ID))
	assert.Error(t, memberRepo.RemoveMember(g.ID, alice.ID))
}
