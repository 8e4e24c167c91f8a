package model

import (
	"time"
)

// ShareEvent 表示一次分享动作, 接收者在发送时确定
type ShareEvent struct {
	ID            uint        `gorm:"primaryKey"`
	FlashUpdateID uint        `gorm:"not null;index"`
	FlashUpdate   FlashUpdate `gorm:"foreignKey:FlashUpdateID"`
	CreatedByID   uint        `gorm:"not null"`

	Recipients []User  `gorm:"many2many:share_event_recipients"`
	Groups     []Group `gorm:"many2many:share_event_groups"`

	// 本次分享单独渲染的附件, 不复用导出任务的产物
	ArtifactURL   *string `gorm:"type:text"`
	ArtifactError *string `gorm:"type:text"`
	CreatedAt     time.Time
}

func (e *ShareEvent) RecipientIDs() []uint {
	ids := make([]uint, 0, len(e.Recipients))
	for _, u := range e.Recipients {
		ids = append(ids, u.ID)
	}
	return ids
}

func (e *ShareEvent) GroupIDs() []uint {
	ids := make([]uint, 0, len(e.Groups))
	for _, g := range e.Groups {
		ids = append(ids, g.ID)
	}
	return ids
}
