package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier 只把通知写入日志
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, to Recipient, p Payload) error {
	n.log.Info("Notification",
		zap.String("kind", string(p.Kind)),
		zap.String("recipient", to.String()),
		zap.Uint("flashUpdateID", p.FlashUpdateID),
		zap.String("title", p.Title),
		zap.String("artifactURL", p.ArtifactURL))
	return nil
}
