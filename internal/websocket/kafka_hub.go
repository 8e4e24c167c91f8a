package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go-relief-hub/internal/interfaces"
	"go-relief-hub/pkg/config"
	"go-relief-hub/pkg/logger"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// KafkaHub 在多个服务节点之间转发通知: 本地在线直接推送, 否则经Kafka交给其他节点
type KafkaHub struct {
	clients    map[uint]interfaces.Client
	clientsMu  sync.RWMutex
	producer   sarama.SyncProducer
	consumer   sarama.ConsumerGroup
	ctx        context.Context
	cancelFunc context.CancelFunc

	topicPrefix string
}

func NewKafkaHub(cfg config.KafkaConfig) (*KafkaHub, error) {
	kConfig := newSaramaConfig()

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to start Kafka producer: %w", err)
	}

	consumer, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, kConfig)
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("failed to start Kafka consumer group: %w", err)
	}

	return newKafkaHub(producer, consumer, cfg.TopicPrefix), nil
}

func newKafkaHub(producer sarama.SyncProducer, consumer sarama.ConsumerGroup, topicPrefix string) *KafkaHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaHub{
		clients:     make(map[uint]interfaces.Client),
		producer:    producer,
		consumer:    consumer,
		ctx:         ctx,
		cancelFunc:  cancel,
		topicPrefix: topicPrefix,
	}
}

func newSaramaConfig() *sarama.Config {
	kConfig := sarama.NewConfig()
	kConfig.Producer.RequiredAcks = sarama.WaitForAll
	kConfig.Producer.Return.Successes = true
	kConfig.Producer.Retry.Max = 3
	kConfig.Consumer.Return.Errors = true
	kConfig.Version = sarama.V2_8_0_0
	return kConfig
}

func (h *KafkaHub) StartConsumer() {
	go h.consumeMessages()
}

func (h *KafkaHub) Close() error {
	h.cancelFunc()

	if err := h.producer.Close(); err != nil {
		logger.L.Error("Failed to close Kafka producer", zap.Error(err))
	}
	if h.consumer != nil {
		if err := h.consumer.Close(); err != nil {
			logger.L.Error("Failed to close Kafka consumer group", zap.Error(err))
		}
	}
	return nil
}

func (h *KafkaHub) Register(client interfaces.Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	userID := client.GetUserID()
	if old, ok := h.clients[userID]; ok && old != client {
		old.Close()
	}
	h.clients[userID] = client
	logger.L.Info("Client registered with KafkaHub", zap.Uint("userID", userID))
}

func (h *KafkaHub) Unregister(client interfaces.Client) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	userID := client.GetUserID()
	if registered, ok := h.clients[userID]; ok && registered == client {
		client.Close()
		delete(h.clients, userID)
		logger.L.Info("Client unregistered from KafkaHub", zap.Uint("userID", userID))
	}
}

func (h *KafkaHub) buildTopicName(messageType string) string {
	return fmt.Sprintf("%s_%s", h.topicPrefix, messageType)
}

// Broadcast 经Kafka发给所有节点, 包括本节点
func (h *KafkaHub) Broadcast(data []byte) error {
	_, _, err := h.producer.SendMessage(&sarama.ProducerMessage{
		Topic: h.buildTopicName("broadcast"),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}
	return nil
}

func (h *KafkaHub) SendToUser(userID uint, data []byte) (bool, error) {
	h.clientsMu.RLock()
	client, online := h.clients[userID]
	h.clientsMu.RUnlock()

	if online {
		if err := client.QueueBytes(data); err != nil {
			return false, fmt.Errorf("failed to queue message: %w", err)
		}
		return true, nil
	}

	msgBytes, err := json.Marshal(&KafkaDirectMessage{UserID: userID, Payload: data})
	if err != nil {
		return false, fmt.Errorf("failed to marshal direct message: %w", err)
	}

	_, _, err = h.producer.SendMessage(&sarama.ProducerMessage{
		Topic: h.buildTopicName("direct"),
		Value: sarama.ByteEncoder(msgBytes),
	})
	if err != nil {
		return false, fmt.Errorf("failed to send message to Kafka: %w", err)
	}
	// 已交给Kafka, 对方是否在线未知
	return false, nil
}

func (h *KafkaHub) IsClientConnected(userID uint) bool {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

func (h *KafkaHub) consumeMessages() {
	handler := &kafkaConsumerHandler{hub: h}
	topics := []string{
		h.buildTopicName("broadcast"),
		h.buildTopicName("direct"),
	}

	for {
		select {
		case <-h.ctx.Done():
			logger.L.Info("Stopping Kafka consumer")
			return
		default:
			if err := h.consumer.Consume(h.ctx, topics, handler); err != nil {
				logger.L.Error("Kafka consumer error", zap.Error(err))
				time.Sleep(5 * time.Second)
			}
		}
	}
}

// KafkaDirectMessage 是发往单个用户的通知
type KafkaDirectMessage struct {
	UserID  uint   `json:"user_id"`
	Payload []byte `json:"payload"`
}

type kafkaConsumerHandler struct {
	hub *KafkaHub
}

func (h *kafkaConsumerHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *kafkaConsumerHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *kafkaConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		h.handle(message.Topic, message.Value)
		session.MarkMessage(message, "")
	}
	return nil
}

func (h *kafkaConsumerHandler) handle(topic string, data []byte) {
	switch topic {
	case h.hub.buildTopicName("broadcast"):
		h.hub.clientsMu.RLock()
		targets := make([]interfaces.Client, 0, len(h.hub.clients))
		for _, client := range h.hub.clients {
			targets = append(targets, client)
		}
		h.hub.clientsMu.RUnlock()

		for _, client := range targets {
			if err := client.QueueBytes(data); err != nil {
				logger.L.Warn("Failed to queue broadcast notification",
					zap.Uint("userID", client.GetUserID()), zap.Error(err))
			}
		}

	case h.hub.buildTopicName("direct"):
		var directMsg KafkaDirectMessage
		if err := json.Unmarshal(data, &directMsg); err != nil {
			logger.L.Error("Failed to unmarshal direct message", zap.Error(err))
			return
		}
		h.hub.clientsMu.RLock()
		client, online := h.hub.clients[directMsg.UserID]
		h.hub.clientsMu.RUnlock()
		if online {
			if err := client.QueueBytes(directMsg.Payload); err != nil {
				logger.L.Warn("Failed to queue direct notification",
					zap.Uint("userID", directMsg.UserID), zap.Error(err))
			}
		}
	}
}
