package kafka

import (
	"time"

	"webhook_processing/internal/models"
)

// DTO для downstream-консьюмеров: только нормализованные поля события,
// суммы в строках с фиксированной точностью.
type WebhookMessage struct {
	ID            int64     `json:"id"`
	Partner       string    `json:"partner"`
	EventType     string    `json:"event_type"`
	ClickID       string    `json:"click_id"`
	OrderNumber   string    `json:"order_number"`
	UniqID        string    `json:"uniq_id"`
	OrderStatus   string    `json:"order_status"`
	Revenue       string    `json:"revenue"`
	CommissionFee string    `json:"commission_fee"`
	Currency      string    `json:"currency"`
	ReceivedAt    time.Time `json:"received_at"`
}

func NewWebhookMessage(event *models.WebhookEvent) *WebhookMessage {
	return &WebhookMessage{
		ID:            event.ID,
		Partner:       event.Partner,
		EventType:     event.EventType,
		ClickID:       event.ClickID,
		OrderNumber:   event.OrderNumber,
		UniqID:        event.UniqID,
		OrderStatus:   event.OrderStatus,
		Revenue:       event.Revenue.StringFixed(2),
		CommissionFee: event.CommissionFee.StringFixed(2),
		Currency:      event.Currency,
		ReceivedAt:    event.ReceivedAt,
	}
}
