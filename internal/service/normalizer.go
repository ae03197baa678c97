package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"webhook_processing/internal/metrics"
	"webhook_processing/internal/models"
	"webhook_processing/internal/partner"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownPartner = errors.New("unknown partner")
)

// ValidationError names the offending field; Is() keeps errors.Is(err,
// ErrInvalidInput) working for the transport layer.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalidField(field, reason string) error {
	metrics.IncValidationFailure(field)
	return &ValidationError{Field: field, Reason: reason}
}

// NormalizeEvent превращает сырые поля партнера в каноническое событие.
// Жестко обязательны только click_id и order_number; остальное best-effort:
// неизвестные статусы и валюты сохраняются как есть, чтобы не терять
// уведомления при изменении словаря партнера.
func NormalizeEvent(partnerID string, raw partner.RawFields, meta partner.RequestMeta) (*models.WebhookEvent, error) {
	clickID := strings.TrimSpace(raw.Get("click_id"))
	if clickID == "" {
		return nil, invalidField("click_id", "Missing required field: click_id")
	}

	orderNumber := strings.TrimSpace(raw.Get("order_number"))
	if orderNumber == "" {
		return nil, invalidField("order_number", "Missing required field: order_number")
	}

	// uniq_id отсутствует на ранних статусах у части офферов - тогда
	// дискриминантом идемпотентности служит order_number
	uniqID := strings.TrimSpace(raw.Get("uniq_id"))
	if uniqID == "" {
		uniqID = orderNumber
	}

	orderStatus := normalizeOrderStatus(raw.Get("order_status"))

	revenue, err := parseAmount(raw, "revenue")
	if err != nil {
		return nil, err
	}
	commissionFee, err := parseAmount(raw, "commission_fee")
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(raw.Get("currency")))
	if currency == "" {
		currency = "RUB"
	}

	rawData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal raw data: %w", err)
	}

	event := &models.WebhookEvent{
		Partner:     partnerID,
		EventType:   eventTypeForStatus(orderStatus),
		ClickID:     clickID,
		OrderNumber: orderNumber,
		UniqID:      uniqID,
		OrderStatus: orderStatus,

		OfferName:     optString(raw, "offer_name"),
		OfferType:     optString(raw, "offer_type"),
		OfferID:       optString(raw, "offer_id"),
		TypeID:        optInt(raw, "type_id"),
		Sub:           optString(raw, "sub"),
		Sub2:          optString(raw, "sub2"),
		Sub3:          optString(raw, "sub3"),
		Sub4:          optString(raw, "sub4"),
		Sub5:          optString(raw, "sub5"),
		Revenue:       revenue,
		CommissionFee: commissionFee,
		Currency:      currency,
		IP:            optString(raw, "ip"),
		IPv6:          optString(raw, "ipv6"),
		UserAgentEPN:  optString(raw, "user_agent"),
		ClickTime:     optString(raw, "click_time"),
		TimeOfOrder:   optString(raw, "time_of_order"),

		ClientIP:  optValue(meta.ClientIP),
		UserAgent: optValue(meta.UserAgent),
		RawData:   rawData,
	}

	return event, nil
}

// Словарь статусов EPN.bz: waiting (новый заказ), pending (холд),
// completed (подтверждено), rejected (отменен). Синонимы сворачиваются,
// незнакомые значения проходят как есть.
func normalizeOrderStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case "":
		return models.StatusWaiting
	case "waiting":
		return models.StatusWaiting
	case "pending":
		return models.StatusPending
	case "completed", "confirmed", "approved":
		return models.StatusCompleted
	case "rejected", "cancelled", "canceled", "declined":
		return models.StatusRejected
	default:
		return s
	}
}

func eventTypeForStatus(status string) string {
	switch status {
	case models.StatusWaiting:
		return "order.created"
	case models.StatusPending:
		return "order.pending"
	case models.StatusCompleted:
		return "order.completed"
	case models.StatusRejected:
		return "order.rejected"
	default:
		return "order.unknown"
	}
}

// parseAmount: отсутствие поля = 0.00, мусор в присланном значении = 400.
func parseAmount(raw partner.RawFields, field string) (decimal.Decimal, error) {
	v := strings.TrimSpace(raw.Get(field))
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, invalidField(field, fmt.Sprintf("Invalid numeric value for %s", field))
	}
	return d.Round(2), nil
}

func optString(raw partner.RawFields, key string) *string {
	v := strings.TrimSpace(raw.Get(key))
	if v == "" {
		return nil
	}
	return &v
}

func optInt(raw partner.RawFields, key string) *int {
	v := strings.TrimSpace(raw.Get(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// необязательное поле, кривое значение просто пропускаем
		return nil
	}
	return &n
}

func optValue(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
