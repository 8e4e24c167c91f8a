package service

import (
	"context"
	"fmt"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/repository"
	"go-relief-hub/pkg/logger"

	"go.uber.org/zap"
)

// SubscriptionService 维护 分类 -> 群组 的映射, 每次整行替换
type SubscriptionService struct {
	subscriptions *repository.ShareSubscriptionRepository
	groups        *repository.GroupRepository
}

func NewSubscriptionService(subscriptions *repository.ShareSubscriptionRepository, groups *repository.GroupRepository) *SubscriptionService {
	return &SubscriptionService{subscriptions: subscriptions, groups: groups}
}

func (s *SubscriptionService) List(ctx context.Context) ([]model.ShareSubscription, error) {
	return s.subscriptions.List(ctx)
}

// Set 把分类指向groupID; groupID为nil表示取消订阅.
// 只影响之后的发送, 已记录的分享不变.
func (s *SubscriptionService) Set(ctx context.Context, shareWith model.ShareWith, groupID *uint) (*model.ShareSubscription, error) {
	if !shareWith.Valid() {
		return nil, NewValidationError("share_with", fmt.Sprintf("%q is not a valid choice", shareWith))
	}
	if groupID != nil {
		groups, err := s.groups.FindByIDs([]uint{*groupID})
		if err != nil {
			return nil, err
		}
		if len(groups) == 0 {
			return nil, NewValidationError("group", fmt.Sprintf("unknown group %d", *groupID))
		}
	}

	sub, err := s.subscriptions.Upsert(ctx, shareWith, groupID)
	if err != nil {
		return nil, err
	}
	logger.L.Info("Share subscription updated", zap.String("share_with", string(shareWith)), zap.Uintp("group_id", groupID))
	return sub, nil
}

// Seed 为每个分类补齐一行空订阅
func (s *SubscriptionService) Seed(ctx context.Context) error {
	return s.subscriptions.Seed(ctx)
}
