package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go-relief-hub/internal/model"
	"go-relief-hub/internal/notify"
	"go-relief-hub/internal/render"
	"go-relief-hub/internal/repository"
	"go-relief-hub/internal/storage"
	"go-relief-hub/pkg/db"
	"go-relief-hub/pkg/logger"

	"go.uber.org/zap"
)

// ShareKind 是分享时附带文件的导出类型
const ShareKind = "pdf"

// ShareService 解析接收者并发送分享通知.
// 订阅每次都重新读取, 一次发送只使用发送时的群组.
type ShareService struct {
	uow           *db.UnitOfWork
	events        *repository.ShareEventRepository
	subscriptions *repository.ShareSubscriptionRepository
	flashUpdates  *repository.FlashUpdateRepository
	users         *repository.UserRepository
	groups        *repository.GroupRepository
	notifier      notify.Notifier
	artifacts     *artifactBuilder
}

func NewShareService(
	uow *db.UnitOfWork,
	events *repository.ShareEventRepository,
	subscriptions *repository.ShareSubscriptionRepository,
	flashUpdates *repository.FlashUpdateRepository,
	users *repository.UserRepository,
	groups *repository.GroupRepository,
	notifier notify.Notifier,
	renderers render.Registry,
	store storage.ArtifactStore,
) *ShareService {
	return &ShareService{
		uow:           uow,
		events:        events,
		subscriptions: subscriptions,
		flashUpdates:  flashUpdates,
		users:         users,
		groups:        groups,
		notifier:      notifier,
		artifacts: &artifactBuilder{
			flashUpdates: flashUpdates,
			renderers:    renderers,
			store:        store,
			now:          time.Now,
		},
	}
}

// ResolveRecipients 返回分类当前指向的群组, 未配置时为nil
func (s *ShareService) ResolveRecipients(ctx context.Context, shareWith model.ShareWith) (*uint, error) {
	sub, err := s.subscriptions.FindByShareWith(ctx, shareWith)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.GroupID == nil {
		return nil, nil
	}
	id := *sub.GroupID
	return &id, nil
}

// Share 记录一次分享. 两个列表都为空时, 捕获主体分类当前的订阅群组.
// 附件渲染和通知在提交后异步进行.
func (s *ShareService) Share(ctx context.Context, userID, subjectID uint, recipientIDs, groupIDs []uint) (*model.ShareEvent, error) {
	fu, err := s.flashUpdates.FindByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if fu == nil {
		return nil, notFound("flash update", subjectID)
	}

	recipientIDs, groupIDs = uniqueIDs(recipientIDs), uniqueIDs(groupIDs)
	verr := &ValidationError{}

	users, err := s.users.FindByIDs(recipientIDs)
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(recipientIDs, userIDsOf(users)); len(missing) > 0 {
		verr.Add("recipients", fmt.Sprintf("unknown user ids %v", missing))
	}

	groups, err := s.groups.FindByIDs(groupIDs)
	if err != nil {
		return nil, err
	}
	if missing := missingIDs(groupIDs, groupIDsOf(groups)); len(missing) > 0 {
		verr.Add("groups", fmt.Sprintf("unknown group ids %v", missing))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if len(users) == 0 && len(groups) == 0 {
		gid, err := s.ResolveRecipients(ctx, fu.ShareWith)
		if err != nil {
			return nil, err
		}
		if gid != nil {
			groups, err = s.groups.FindByIDs([]uint{*gid})
			if err != nil {
				return nil, err
			}
		}
		if len(groups) == 0 {
			return nil, NewValidationError("groups",
				fmt.Sprintf("no recipients given and no group is subscribed to %s", fu.ShareWith))
		}
	}

	event := &model.ShareEvent{
		FlashUpdateID: fu.ID,
		CreatedByID:   userID,
		Recipients:    users,
		Groups:        groups,
	}
	snapshot := notify.Payload{
		Kind:          notify.KindShared,
		FlashUpdateID: fu.ID,
		Title:         fu.Title,
		ShareWith:     string(fu.ShareWith),
	}

	err = s.uow.Do(ctx, func(tx *db.Tx) error {
		if err := s.events.WithTx(tx.DB).Create(ctx, event); err != nil {
			return err
		}
		recipients := shareRecipients(event)
		eventID := event.ID
		tx.OnCommit("share:deliver", func(ctx context.Context) {
			s.deliver(ctx, eventID, recipients, snapshot)
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.L.Info("Flash update shared",
		zap.Uint("share_event_id", event.ID),
		zap.Uint("subject_id", fu.ID),
		zap.Uints("recipients", event.RecipientIDs()),
		zap.Uints("groups", event.GroupIDs()))
	return event, nil
}

// deliver 为本次分享渲染新附件, 然后逐个接收者发送通知
func (s *ShareService) deliver(ctx context.Context, eventID uint, recipients []notify.Recipient, p notify.Payload) {
	log := logger.L.With(zap.Uint("share_event_id", eventID), zap.Uint("subject_id", p.FlashUpdateID))

	doc, url, err := s.artifacts.build(ctx, p.FlashUpdateID, ShareKind, fmt.Sprintf("shares/%d", eventID))
	if err != nil {
		log.Error("Share artifact render failed", zap.Error(err))
		msg := summarize(err)
		if serr := s.events.SetArtifact(context.WithoutCancel(ctx), eventID, nil, &msg); serr != nil {
			log.Error("Failed to record share artifact error", zap.Error(serr))
		}
	} else {
		if serr := s.events.SetArtifact(context.WithoutCancel(ctx), eventID, &url, nil); serr != nil {
			log.Error("Failed to record share artifact", zap.Error(serr))
		}
		p.ArtifactURL = url
	}
	if doc != nil {
		p.Title = doc.Title
		p.Summary = doc
	}

	p.ShareEventID = eventID
	p.SentAt = time.Now()
	delivered := notify.Dispatch(ctx, s.notifier, recipients, p)
	log.Info("Share notifications sent", zap.Int("delivered", delivered), zap.Int("recipients", len(recipients)))
}

// AutoNotify 在快讯创建或更新提交后调用, 向当前订阅群组发送一条通知
func (s *ShareService) AutoNotify(ctx context.Context, flashUpdateID uint) {
	log := logger.L.With(zap.Uint("subject_id", flashUpdateID))

	fu, err := s.flashUpdates.FindByID(ctx, flashUpdateID)
	if err != nil {
		log.Error("Auto notify: failed to load flash update", zap.Error(err))
		return
	}
	if fu == nil {
		log.Info("Auto notify: flash update no longer exists")
		return
	}

	gid, err := s.ResolveRecipients(ctx, fu.ShareWith)
	if err != nil {
		log.Error("Auto notify: failed to resolve subscription", zap.Error(err))
		return
	}
	if gid == nil {
		log.Debug("Auto notify: no group subscribed", zap.String("share_with", string(fu.ShareWith)))
		return
	}

	now := time.Now()
	notify.Dispatch(ctx, s.notifier, []notify.Recipient{notify.GroupRecipient(*gid)}, notify.Payload{
		Kind:          notify.KindPublished,
		FlashUpdateID: fu.ID,
		Title:         fu.Title,
		ShareWith:     string(fu.ShareWith),
		SentAt:        now,
		Summary:       render.NewFlashUpdateDocument(fu, now),
	})
	log.Info("Auto notify sent", zap.Uint("group_id", *gid))
}

func (s *ShareService) ListForSubject(ctx context.Context, subjectID uint) ([]model.ShareEvent, error) {
	return s.events.ListBySubject(ctx, subjectID)
}

func shareRecipients(event *model.ShareEvent) []notify.Recipient {
	out := make([]notify.Recipient, 0, len(event.Recipients)+len(event.Groups))
	for _, id := range event.RecipientIDs() {
		out = append(out, notify.UserRecipient(id))
	}
	for _, id := range event.GroupIDs() {
		out = append(out, notify.GroupRecipient(id))
	}
	return out
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func missingIDs(want, have []uint) []uint {
	found := make(map[uint]bool, len(have))
	for _, id := range have {
		found[id] = true
	}
	var missing []uint
	for _, id := range want {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

func userIDsOf(users []model.User) []uint {
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func groupIDsOf(groups []model.Group) []uint {
	ids := make([]uint, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids
}
