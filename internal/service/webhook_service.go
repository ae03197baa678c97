package service

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"webhook_processing/internal/cache"
	"webhook_processing/internal/metrics"
	"webhook_processing/internal/models"
	"webhook_processing/internal/partner"
	"webhook_processing/internal/repository"
)

// EventStore — идемпотентное хранилище с трехзначным исходом вставки.
type EventStore interface {
	Insert(ctx context.Context, event *models.WebhookEvent) (repository.Outcome, error)
}

// Alerter принимает уведомление и возвращается сразу; доставка не должна
// блокировать или ронять ответ вебхука.
type Alerter interface {
	Notify(subject, body string)
}

// ProcessResult is what the transport layer needs to build the response.
type ProcessResult struct {
	Event   *models.WebhookEvent
	Outcome repository.Outcome
}

type WebhookService struct {
	registry *partner.Registry
	store    EventStore

	cache    cache.Cache // nil = fast-path выключен
	cacheTTL time.Duration

	alerts      Alerter           // nil = алерты выключены
	publishChan chan<- PublishJob // nil = kafka выключена

	logger *log.Logger
}

func NewWebhookService(
	registry *partner.Registry,
	store EventStore,
	c cache.Cache,
	cacheTTL time.Duration,
	alerts Alerter,
	publishChan chan<- PublishJob,
	logger *log.Logger,
) *WebhookService {
	if logger == nil {
		logger = log.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = 24 * time.Hour
	}
	return &WebhookService{
		registry:    registry,
		store:       store,
		cache:       c,
		cacheTTL:    cacheTTL,
		alerts:      alerts,
		publishChan: publishChan,
		logger:      logger,
	}
}

// Process прогоняет запрос по конвейеру adapter → normalizer → store.
// Ошибки валидации никогда не доходят до хранилища; только ошибки
// хранилища уходят в алерты.
func (s *WebhookService) Process(ctx context.Context, partnerID string, r *http.Request, body []byte) (*ProcessResult, error) {
	p, ok := s.registry.Get(partnerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPartner, partnerID)
	}

	metrics.IncWebhookReceived(partnerID)

	raw, err := p.Parse(r, body)
	if err != nil {
		s.logger.Printf("parse webhook for %s: %v", partnerID, err)
		return nil, invalidField("payload", "Failed to parse webhook data")
	}

	event, err := NormalizeEvent(partnerID, raw, partner.NewRequestMeta(r))
	if err != nil {
		return nil, err
	}

	key := cache.EventKey(event.Partner, event.UniqID, event.OrderStatus)

	// повторная доставка, которую мы уже приняли, видна по кэшу без похода
	// в БД; промах или ошибка кэша - решает уникальный ключ в Postgres
	if s.cache != nil {
		if _, hit, err := s.cache.Get(ctx, key); err == nil && hit {
			metrics.IncRedisHit()
			metrics.IncWebhookOutcome(partnerID, repository.OutcomeDuplicate.String())
			s.logger.Printf("duplicate webhook (cache): partner=%s uniq_id=%s status=%s",
				event.Partner, event.UniqID, event.OrderStatus)
			return &ProcessResult{Event: event, Outcome: repository.OutcomeDuplicate}, nil
		}
		metrics.IncRedisMiss()
	}

	outcome, err := s.store.Insert(ctx, event)
	metrics.IncWebhookOutcome(partnerID, outcome.String())

	switch outcome {
	case repository.OutcomeInserted:
		if event.NonStandardStatus() {
			metrics.IncNonStandardStatus(partnerID, event.OrderStatus)
			s.logger.Printf("non-standard order status from %s: %q", partnerID, event.OrderStatus)
		}
		rev, _ := event.Revenue.Float64()
		metrics.ObserveRevenue(rev)

		s.rememberKey(ctx, key)
		s.publish(event)

		s.logger.Printf("saved webhook: partner=%s uniq_id=%s status=%s revenue=%s %s",
			event.Partner, event.UniqID, event.OrderStatus,
			event.Revenue.StringFixed(2), event.Currency)

	case repository.OutcomeDuplicate:
		s.rememberKey(ctx, key)
		s.logger.Printf("duplicate webhook: partner=%s uniq_id=%s status=%s",
			event.Partner, event.UniqID, event.OrderStatus)

	case repository.OutcomeUnavailable:
		s.logger.Printf("storage unavailable: %v", err)
		s.Alert(
			"Webhook receiver: database unavailable",
			fmt.Sprintf("Failed to save webhook event.\n\npartner: %s\nuniq_id: %s\norder_status: %s\n\nerror: %v\n\nThe relay got HTTP 503 and will retry.",
				event.Partner, event.UniqID, event.OrderStatus, err),
		)
		return nil, err
	}

	return &ProcessResult{Event: event, Outcome: outcome}, nil
}

// Alert is fire-and-forget; no-op when alerting is not configured.
func (s *WebhookService) Alert(subject, body string) {
	if s.alerts == nil {
		return
	}
	s.alerts.Notify(subject, body)
}

func (s *WebhookService) rememberKey(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, []byte("1"), s.cacheTTL); err != nil {
		s.logger.Printf("cache set %s: %v", key, err)
	}
}

func (s *WebhookService) publish(event *models.WebhookEvent) {
	if s.publishChan == nil {
		return
	}
	select {
	case s.publishChan <- PublishJob{Event: event}:
	default:
		// очередь заполнена: egress не должен тормозить ответ relay
		metrics.IncKafkaError("producer", "enqueue")
		s.logger.Printf("publish queue full, dropping event uniq_id=%s", event.UniqID)
	}
}
