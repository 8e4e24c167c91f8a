package websocket

import (
	"fmt"

	"go-relief-hub/internal/interfaces"
	"go-relief-hub/pkg/config"
	"go-relief-hub/pkg/logger"

	"go.uber.org/zap"
)

// CreateHub 根据配置创建相应的Hub实现
func CreateHub(cfg config.MessagingConfig) (interfaces.ConnectionManager, error) {
	logger.L.Info("Creating notification hub", zap.String("hub", cfg.Hub))

	switch cfg.Hub {
	case "", "channel":
		return NewHub(), nil
	case "kafka":
		return NewKafkaHub(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unsupported hub: %s", cfg.Hub)
	}
}

// StartHub 启动后台循环, 返回的函数用于停止
func StartHub(hub interfaces.ConnectionManager) (func(), error) {
	switch h := hub.(type) {
	case *Hub:
		go h.Run()
		return h.Stop, nil
	case *KafkaHub:
		h.StartConsumer()
		return func() { _ = h.Close() }, nil
	default:
		return nil, fmt.Errorf("unknown hub type %T", hub)
	}
}
