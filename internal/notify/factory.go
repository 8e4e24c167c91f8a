package notify

import (
	"errors"
	"fmt"
	"strings"

	"go-relief-hub/internal/interfaces"
	"go-relief-hub/pkg/config"
	"go-relief-hub/pkg/logger"

	"go.uber.org/zap"
)

// New 按cfg.Provider (逗号分隔的渠道名) 组装通知器.
// 返回的close函数负责释放生产者连接.
func New(cfg config.MessagingConfig, dir Directory, hub interfaces.ConnectionManager) (Notifier, func() error, error) {
	var (
		notifiers Multi
		closers   []func() error
	)
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	for _, name := range strings.Split(cfg.Provider, ",") {
		name = strings.TrimSpace(name)
		switch name {
		case "":
			continue
		case "log":
			notifiers = append(notifiers, NewLogNotifier(logger.Named("notify")))
		case "memory":
			notifiers = append(notifiers, NewMemoryNotifier())
		case "email":
			sender, err := NewSender(cfg.Email)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			notifiers = append(notifiers, NewEmailNotifier(sender, dir))
		case "kafka":
			kn, err := NewKafkaNotifier(cfg.Kafka)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			notifiers = append(notifiers, kn)
			closers = append(closers, kn.Close)
		case "hub":
			if hub == nil {
				closeAll()
				return nil, nil, errors.New("hub notifier requires a connection manager")
			}
			notifiers = append(notifiers, NewHubNotifier(hub, dir))
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unsupported messaging provider: %q", name)
		}
		logger.L.Info("Notification channel enabled", zap.String("provider", name))
	}

	if len(notifiers) == 0 {
		notifiers = append(notifiers, NewLogNotifier(logger.Named("notify")))
	}
	if len(notifiers) == 1 {
		return notifiers[0], closeAll, nil
	}
	return notifiers, closeAll, nil
}
