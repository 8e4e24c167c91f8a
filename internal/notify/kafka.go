package notify

import (
	"context"
	"fmt"

	"go-relief-hub/pkg/config"

	"github.com/IBM/sarama"
)

// KafkaNotifier 把通知信封发布给下游消费者
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaNotifier(cfg config.KafkaConfig) (*KafkaNotifier, error) {
	kConfig := sarama.NewConfig()
	kConfig.Producer.RequiredAcks = sarama.WaitForAll
	kConfig.Producer.Return.Successes = true
	kConfig.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to start Kafka producer: %w", err)
	}
	return NewKafkaNotifierWithProducer(producer, cfg.TopicPrefix), nil
}

func NewKafkaNotifierWithProducer(producer sarama.SyncProducer, topicPrefix string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topicPrefix + "_notifications"}
}

func (n *KafkaNotifier) Notify(_ context.Context, to Recipient, p Payload) error {
	data, err := EncodeEnvelope(to, p)
	if err != nil {
		return err
	}
	_, _, err = n.producer.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(to.String()),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}
