package model

import (
	"fmt"
	"time"
)

type ExportStatus string

const (
	ExportStatusPending ExportStatus = "pending"
	ExportStatusReady   ExportStatus = "ready"
	ExportStatusFailed  ExportStatus = "failed"
)

// ExportJob 记录一次 (主体, 类型) 的导出请求
type ExportJob struct {
	ID        string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SubjectID uint         `gorm:"not null;index:idx_export_subject_kind" json:"subject_id"`
	Kind      string       `gorm:"type:varchar(20);not null;index:idx_export_subject_kind" json:"kind"`
	Status    ExportStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	URL       *string      `gorm:"type:text" json:"url"`
	Error     *string      `gorm:"type:text" json:"error"`
	// pending/ready 时为 "<subject>:<kind>", failed 时清空; 唯一索引保证同一时刻只有一个未失败的任务
	ActiveKey *string   `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ExportActiveKey(subjectID uint, kind string) string {
	return fmt.Sprintf("%d:%s", subjectID, kind)
}

func (j *ExportJob) Terminal() bool {
	return j.Status == ExportStatusReady || j.Status == ExportStatusFailed
}
