package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"webhook_processing/internal/models"

	"github.com/IBM/sarama"
)

type Producer struct {
	topic    string
	producer sarama.SyncProducer
}

func NewSyncProducer(brokers []string, topic string) (*Producer, error) {
	cfg := sarama.NewConfig()

	// SyncProducer обязательно:
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true

	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 500 * time.Millisecond

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create sarama sync producer: %w", err)
	}

	return &Producer{
		topic:    topic,
		producer: prod,
	}, nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

// SendEventMessage публикует принятое событие; ключ = uniq_id, чтобы
// статусы одного заказа попадали в одну партицию по порядку.
func (p *Producer) SendEventMessage(event *models.WebhookEvent) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}

	payload := NewWebhookMessage(event)
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.UniqID),
		Value:     sarama.ByteEncoder(b),
		Timestamp: time.Now(),
	}

	_, _, err = p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send kafka message: %w", err)
	}

	return nil
}
