package testsupport

import (
	"fmt"
	"testing"

	"go-relief-hub/internal/model"

	"gorm.io/gorm"
)

// CreateUser 插入一个邮箱唯一的用户. 密码不能用于登录, 需要登录时通过AuthService注册
func CreateUser(t testing.TB, conn *gorm.DB, username string, staff bool) *model.User {
	t.Helper()
	u := &model.User{
		Username: username,
		Password: "x",
		Email:    fmt.Sprintf("%s@example.org", username),
		IsStaff:  staff,
	}
	if err := conn.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateGroup 插入ownerID拥有的群组并加入额外成员
func CreateGroup(t testing.TB, conn *gorm.DB, name string, ownerID uint, memberIDs ...uint) *model.Group {
	t.Helper()
	g := &model.Group{Name: name, OwnerID: ownerID}
	if err := conn.Omit("Owner", "Members").Create(g).Error; err != nil {
		t.Fatalf("create group %s: %v", name, err)
	}
	members := []model.GroupMember{{GroupID: g.ID, UserID: ownerID, Role: model.RoleOwner}}
	for _, id := range memberIDs {
		members = append(members, model.GroupMember{GroupID: g.ID, UserID: id, Role: model.RoleMember})
	}
	if err := conn.Omit("Group", "User").Create(&members).Error; err != nil {
		t.Fatalf("create members of %s: %v", name, err)
	}
	return g
}

// Geo 是一个小目录: 两个国家(分别有一个和两个地区), 两种灾害类型, 三个行动
type Geo struct {
	CountryA, CountryB        model.Country
	DistrictA1, DistrictA2    model.District
	DistrictB1                model.District
	Earthquake, Flood         model.DisasterType
	ActionA, ActionB, ActionC model.FlashAction
}

func SeedGeo(t testing.TB, conn *gorm.DB) *Geo {
	t.Helper()
	g := &Geo{
		CountryA:   model.Country{Name: "Nepal", ISO: "NP"},
		CountryB:   model.Country{Name: "Bangladesh", ISO: "BD"},
		Earthquake: model.DisasterType{Name: "Earthquake"},
		Flood:      model.DisasterType{Name: "Flood"},
		ActionA:    model.FlashAction{Name: "Search and rescue", Category: "Response"},
		ActionB:    model.FlashAction{Name: "Shelter", Category: "Response"},
		ActionC:    model.FlashAction{Name: "Cash assistance", Category: "Recovery"},
	}
	mustCreate(t, conn, &g.CountryA, &g.CountryB, &g.Earthquake, &g.Flood, &g.ActionA, &g.ActionB, &g.ActionC)

	g.DistrictA1 = model.District{Name: "Kathmandu", CountryID: g.CountryA.ID}
	g.DistrictA2 = model.District{Name: "Gorkha", CountryID: g.CountryA.ID}
	g.DistrictB1 = model.District{Name: "Sylhet", CountryID: g.CountryB.ID}
	mustCreate(t, conn, &g.DistrictA1, &g.DistrictA2, &g.DistrictB1)
	return g
}

// CreateFlashUpdate 插入不带子记录的快讯
func CreateFlashUpdate(t testing.TB, conn *gorm.DB, title string, shareWith model.ShareWith, createdBy uint) *model.FlashUpdate {
	t.Helper()
	fu := &model.FlashUpdate{
		Title:               title,
		SituationalOverview: "overview of " + title,
		ShareWith:           shareWith,
		CreatedByID:         createdBy,
	}
	if err := conn.Omit("CreatedBy", "ModifiedBy", "HazardType").Create(fu).Error; err != nil {
		t.Fatalf("create flash update %s: %v", title, err)
	}
	return fu
}

// Subscribe 让shareWith订阅到groupID
func Subscribe(t testing.TB, conn *gorm.DB, shareWith model.ShareWith, groupID uint) {
	t.Helper()
	err := conn.Where(model.ShareSubscription{ShareWith: shareWith}).
		Assign(model.ShareSubscription{GroupID: &groupID}).
		FirstOrCreate(&model.ShareSubscription{}).Error
	if err != nil {
		t.Fatalf("subscribe %s: %v", shareWith, err)
	}
}

func mustCreate(t testing.TB, conn *gorm.DB, values ...any) {
	t.Helper()
	for _, v := range values {
		if err := conn.Create(v).Error; err != nil {
			t.Fatalf("create %T: %v", v, err)
		}
	}
}
