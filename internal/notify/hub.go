package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go-relief-hub/internal/interfaces"
)

// HubNotifier 把通知推送给在线的websocket客户端, 离线用户直接跳过
type HubNotifier struct {
	hub interfaces.ConnectionManager
	dir Directory
}

func NewHubNotifier(hub interfaces.ConnectionManager, dir Directory) *HubNotifier {
	return &HubNotifier{hub: hub, dir: dir}
}

type feedMessage struct {
	Recipient
	Payload
}

func (n *HubNotifier) Notify(_ context.Context, to Recipient, p Payload) error {
	data, err := json.Marshal(feedMessage{Recipient: to, Payload: p})
	if err != nil {
		return fmt.Errorf("marshal feed message: %w", err)
	}

	userIDs := []uint{to.UserID}
	if to.IsGroup() {
		userIDs, err = n.dir.GroupMemberIDs(to.GroupID)
		if err != nil {
			return fmt.Errorf("resolve group %d members: %w", to.GroupID, err)
		}
	}

	for _, id := range userIDs {
		if _, err := n.hub.SendToUser(id, data); err != nil {
			return fmt.Errorf("push to user %d: %w", id, err)
		}
	}
	return nil
}
