package model

import (
	"time"
)

// ShareWith 是快讯的受众分类, 决定默认的通知群组
type ShareWith string

const (
	ShareWithIFRCSecretariat      ShareWith = "IFRC_SECRETARIAT"
	ShareWithRCRCNetwork          ShareWith = "RCRC_NETWORK"
	ShareWithRCRCNetworkAndDonors ShareWith = "RCRC_NETWORK_AND_DONORS"
)

// 全部分类, 顺序即展示顺序
var ShareWithChoices = []ShareWith{
	ShareWithIFRCSecretariat,
	ShareWithRCRCNetwork,
	ShareWithRCRCNetworkAndDonors,
}

func (s ShareWith) Valid() bool {
	for _, c := range ShareWithChoices {
		if s == c {
			return true
		}
	}
	return false
}

// FlashUpdate 是可导出、可分享的主体记录
type FlashUpdate struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Title               string    `gorm:"type:varchar(300);not null" json:"title"`
	SituationalOverview string    `gorm:"type:text" json:"situational_overview"`
	ShareWith           ShareWith `gorm:"type:varchar(50);not null;index" json:"share_with"`

	HazardTypeID *uint         `gorm:"index" json:"hazard_type"`
	HazardType   *DisasterType `gorm:"foreignKey:HazardTypeID" json:"-"`

	OriginatorName  string `gorm:"type:varchar(100)" json:"originator_name"`
	OriginatorTitle string `gorm:"type:varchar(300)" json:"originator_title"`
	OriginatorEmail string `gorm:"type:varchar(300)" json:"originator_email"`
	OriginatorPhone string `gorm:"type:varchar(50)" json:"originator_phone"`
	IFRCName        string `gorm:"column:ifrc_name;type:varchar(100)" json:"ifrc_name"`
	IFRCTitle       string `gorm:"column:ifrc_title;type:varchar(300)" json:"ifrc_title"`
	IFRCEmail       string `gorm:"column:ifrc_email;type:varchar(300)" json:"ifrc_email"`
	IFRCPhone       string `gorm:"column:ifrc_phone;type:varchar(50)" json:"ifrc_phone"`

	CreatedByID  uint  `gorm:"not null;index" json:"created_by"`
	CreatedBy    User  `gorm:"foreignKey:CreatedByID" json:"-"`
	ModifiedByID *uint `json:"modified_by"`
	ModifiedBy   *User `gorm:"foreignKey:ModifiedByID" json:"-"`

	CountryDistricts []FlashCountryDistrict `gorm:"foreignKey:FlashUpdateID" json:"country_district"`
	References       []FlashReference       `gorm:"foreignKey:FlashUpdateID" json:"references"`
	ActionsTaken     []FlashActionTaken     `gorm:"foreignKey:FlashUpdateID" json:"actions_taken"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FlashCountryDistrict 一个国家及其受影响的地区
type FlashCountryDistrict struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	FlashUpdateID uint       `gorm:"not null;index" json:"-"`
	CountryID     uint       `gorm:"not null" json:"country"`
	Country       Country    `gorm:"foreignKey:CountryID" json:"-"`
	Districts     []District `gorm:"many2many:flash_country_district_districts" json:"district"`
}

type FlashReference struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	FlashUpdateID     uint       `gorm:"not null;index" json:"-"`
	Date              *time.Time `json:"date"`
	SourceDescription string     `gorm:"type:text" json:"source_description"`
	URL               string     `gorm:"type:text" json:"url"`
}

// FlashAction 是可选行动的目录
type FlashAction struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"type:varchar(200);not null" json:"name"`
	Category string `gorm:"type:varchar(50)" json:"category"`
}

// FlashActionTaken 某组织已采取的行动
type FlashActionTaken struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	FlashUpdateID uint          `gorm:"not null;index" json:"-"`
	Organization  string        `gorm:"type:varchar(16)" json:"organization"`
	Summary       string        `gorm:"type:text" json:"summary"`
	Actions       []FlashAction `gorm:"many2many:flash_action_taken_actions" json:"actions"`
}
