package model

import "time"

// ShareSubscription 把受众分类映射到当前的通知群组, 每个分类至多一行
type ShareSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ShareWith ShareWith `gorm:"type:varchar(50);not null;uniqueIndex" json:"share_with"`
	GroupID   *uint     `json:"group_id"`
	Group     *Group    `gorm:"foreignKey:GroupID" json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}
