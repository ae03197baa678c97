package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Нормализованные статусы заказа по документации EPN.bz.
// Неизвестные значения не отбрасываются: словарь партнера может меняться.
const (
	StatusWaiting   = "waiting"
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
)

var knownStatuses = map[string]struct{}{
	StatusWaiting:   {},
	StatusPending:   {},
	StatusCompleted: {},
	StatusRejected:  {},
}

// IsKnownStatus reports whether s belongs to the documented EPN.bz status set.
func IsKnownStatus(s string) bool {
	_, ok := knownStatuses[s]
	return ok
}

var knownCurrencies = map[string]struct{}{
	"RUB": {},
	"USD": {},
	"EUR": {},
	"GBP": {},
	"TON": {},
}

// IsKnownCurrency reports whether code belongs to the documented currency set.
func IsKnownCurrency(code string) bool {
	_, ok := knownCurrencies[code]
	return ok
}

// WebhookEvent is the canonical persisted record of one order-status
// notification. A row is identified by (partner, uniq_id, order_status):
// re-delivery of the same status is a duplicate, a new status for the same
// order is a new row.
type WebhookEvent struct {
	ID        int64  `db:"id"`
	Partner   string `db:"partner"`
	EventType string `db:"event_type"`

	// обязательные поля EPN.bz
	ClickID     string `db:"click_id"`
	OrderNumber string `db:"order_number"`
	UniqID      string `db:"uniq_id"` // при отсутствии = order_number
	OrderStatus string `db:"order_status"`

	// необязательные поля EPN.bz
	OfferName     *string         `db:"offer_name"`
	OfferType     *string         `db:"offer_type"`
	OfferID       *string         `db:"offer_id"`
	TypeID        *int            `db:"type_id"`
	Sub           *string         `db:"sub"`
	Sub2          *string         `db:"sub2"`
	Sub3          *string         `db:"sub3"`
	Sub4          *string         `db:"sub4"`
	Sub5          *string         `db:"sub5"`
	Revenue       decimal.Decimal `db:"revenue"`
	CommissionFee decimal.Decimal `db:"commission_fee"`
	Currency      string          `db:"currency"`
	IP            *string         `db:"ip"`
	IPv6          *string         `db:"ipv6"`
	UserAgentEPN  *string         `db:"user_agent_epn"`
	ClickTime     *string         `db:"click_time"`
	TimeOfOrder   *string         `db:"time_of_order"`

	// технические поля запроса
	ClientIP  *string         `db:"client_ip"`
	UserAgent *string         `db:"user_agent"`
	RawData   json.RawMessage `db:"raw_data"`

	// проставляется хранилищем при вставке
	ReceivedAt time.Time `db:"received_at"`
}

// NonStandardStatus reports whether the event carries a status outside the
// documented vocabulary (stored verbatim, flagged for observability).
func (e *WebhookEvent) NonStandardStatus() bool {
	return !IsKnownStatus(e.OrderStatus)
}
