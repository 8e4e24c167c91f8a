// Package notify 通过配置的渠道向用户和群组发送快讯通知
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-relief-hub/internal/render"
	"go-relief-hub/pkg/logger"

	"go.uber.org/zap"
)

type Kind string

const (
	// 显式分享
	KindShared Kind = "flash_update.shared"
	// 创建或更新后发给订阅的群组
	KindPublished Kind = "flash_update.published"
)

// Recipient 指向单个用户或整个群组
type Recipient struct {
	UserID  uint `json:"user_id,omitempty"`
	GroupID uint `json:"group_id,omitempty"`
}

func UserRecipient(id uint) Recipient  { return Recipient{UserID: id} }
func GroupRecipient(id uint) Recipient { return Recipient{GroupID: id} }

func (r Recipient) IsGroup() bool { return r.GroupID != 0 }

func (r Recipient) String() string {
	if r.IsGroup() {
		return fmt.Sprintf("group:%d", r.GroupID)
	}
	return fmt.Sprintf("user:%d", r.UserID)
}

type Payload struct {
	Kind          Kind      `json:"kind"`
	FlashUpdateID uint      `json:"flash_update_id"`
	Title         string    `json:"title"`
	ShareWith     string    `json:"share_with"`
	ShareEventID  uint      `json:"share_event_id,omitempty"`
	ArtifactURL   string    `json:"artifact_url,omitempty"`
	SentAt        time.Time `json:"sent_at"`
	// 构建通知时的快讯快照
	Summary *render.FlashUpdateDocument `json:"summary,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, to Recipient, p Payload) error
}

// Dispatch 把p发给每个收件人. 失败只记录日志不返回, 通知失败不能回滚触发它的操作
func Dispatch(ctx context.Context, n Notifier, recipients []Recipient, p Payload) int {
	delivered := 0
	for _, to := range recipients {
		if err := n.Notify(ctx, to, p); err != nil {
			logger.L.Warn("Notification failed",
				zap.String("kind", string(p.Kind)),
				zap.String("recipient", to.String()),
				zap.Uint("flashUpdateID", p.FlashUpdateID),
				zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

// Directory 为按人而非按ID投递的渠道查找用户和群组成员
type Directory interface {
	UserEmail(userID uint) (string, error)
	GroupMemberIDs(groupID uint) ([]uint, error)
	GroupMemberEmails(groupID uint) ([]string, error)
}

// 主题只有一行, 标题中的换行替换为空格
func subject(p Payload) string {
	title := headerValue(p.Title)
	if p.Kind == KindShared {
		return "Flash update shared with you: " + title
	}
	return "Flash update published: " + title
}

func body(p Payload) string {
	text := fmt.Sprintf("%s\n\nAudience: %s\nFlash update #%d", p.Title, p.ShareWith, p.FlashUpdateID)
	if p.ArtifactURL != "" {
		text += "\nDocument: " + p.ArtifactURL
	}
	if doc := p.Summary; doc != nil {
		if doc.HazardType != "" {
			text += "\nHazard: " + doc.HazardType
		}
		for _, c := range doc.Countries {
			text += "\nAffected: " + c.Name
			if len(c.Districts) > 0 {
				text += " (" + strings.Join(c.Districts, ", ") + ")"
			}
		}
		text += "\n\n" + doc.SituationalOverview
		for _, a := range doc.ActionsTaken {
			text += fmt.Sprintf("\n\n%s: %s", a.Organization, a.Summary)
		}
	}
	return text
}
