package notify

import (
	"context"
	"errors"
)

// Multi 把通知分发到多个渠道, 每个渠道都会尝试, 错误合并返回
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, to Recipient, p Payload) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, to, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
