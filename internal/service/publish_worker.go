package service

import (
	"log"

	"webhook_processing/internal/kafka"
	"webhook_processing/internal/metrics"
	"webhook_processing/internal/models"
)

type PublishJob struct {
	Event *models.WebhookEvent
}

// StartPublishWorker шлет принятые события в Kafka в фоне. Сбой публикации
// никогда не влияет на HTTP-ответ: событие уже durable в Postgres.
func StartPublishWorker(ch <-chan PublishJob, producer *kafka.Producer, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	go func() {
		for job := range ch {
			if err := producer.SendEventMessage(job.Event); err != nil {
				metrics.IncKafkaError("producer", "send")
				logger.Println("kafka send error:", err)
				continue
			}
			metrics.IncKafkaSent()
		}
	}()
}
