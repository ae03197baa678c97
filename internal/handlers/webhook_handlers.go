package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"webhook_processing/internal/config"
	"webhook_processing/internal/metrics"
	"webhook_processing/internal/partner"
	"webhook_processing/internal/repository"
	"webhook_processing/internal/service"

	"github.com/go-chi/chi/v5"
)

const (
	ServiceName    = "epn-bz-webhook-receiver"
	ServiceVersion = "4.0.0"

	maxBodyBytes = 1 << 20
)

// WebhookService описывает методы сервисного слоя, которые нужны хендлерам.
type WebhookService interface {
	Process(ctx context.Context, partnerID string, r *http.Request, body []byte) (*service.ProcessResult, error)
	Alert(subject, body string)
}

type WebhookHandler struct {
	service  WebhookService
	registry *partner.Registry
	cfg      *config.Config
	logger   *log.Logger
}

func NewWebhookHandler(svc WebhookService, registry *partner.Registry, cfg *config.Config, logger *log.Logger) *WebhookHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &WebhookHandler{
		service:  svc,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// POST|GET /webhook/{secret_token}
// 200: success body (inserted или duplicate)
// 400: validation failure — relay не ретраит
// 401: bad token — relay не ретраит
// 503: storage unavailable — relay обязан ретраить
// 500: unexpected fault
func (h *WebhookHandler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// auth gate: до адаптера и хранилища
	if !h.cfg.SecretConfigured() {
		h.logger.Println("webhook secret token not configured")
		writeError(w, http.StatusInternalServerError, "Service configuration error")
		return
	}

	token := chi.URLParam(r, "secret_token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.SecretToken)) != 1 {
		metrics.IncAuthFailure()
		h.logger.Printf("invalid secret token provided: %s...", truncate(token, 8))
		writeError(w, http.StatusUnauthorized, "Invalid secret token")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	partnerID := h.registry.Determine(r)

	result, err := h.service.Process(r.Context(), partnerID, r, body)
	if err != nil {
		h.respondError(w, partnerID, err, start)
		return
	}

	event := result.Event
	resp := map[string]any{
		"status":          "success",
		"partner":         event.Partner,
		"click_id":        event.ClickID,
		"uniq_id":         event.UniqID,
		"order_status":    event.OrderStatus,
		"revenue":         event.Revenue.StringFixed(2),
		"commission_fee":  event.CommissionFee.StringFixed(2),
		"processing_time": processingTime(start),
	}

	if result.Outcome == repository.OutcomeDuplicate {
		resp["message"] = "Duplicate webhook - already processed"
		resp["database_status"] = "duplicate_handled"
	} else {
		resp["message"] = "EPN.bz webhook processed and saved successfully"
		resp["database_status"] = "healthy"
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *WebhookHandler) respondError(w http.ResponseWriter, partnerID string, err error, start time.Time) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrUnknownPartner):
		writeError(w, http.StatusNotFound, fmt.Sprintf("Partner %s not supported", partnerID))

	case errors.Is(err, repository.ErrUnavailable):
		// 503 заставляет relay повторить доставку; алерт уже ушел из сервиса
		h.logger.Printf("database unavailable after %s: %v", processingTime(start), err)
		writeError(w, http.StatusServiceUnavailable, "Database temporarily unavailable, please retry later")

	default:
		h.logger.Printf("unexpected error after %s: %v", processingTime(start), err)
		h.service.Alert(
			"Webhook receiver: unexpected failure",
			fmt.Sprintf("Unclassified error while processing a webhook:\n\n%v", err),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// GET /health
func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "healthy",
		"service":           ServiceName,
		"version":           ServiceVersion,
		"secret_configured": h.cfg.SecretConfigured(),
		"email_configured":  h.cfg.AlertingConfigured(),
	})
}

// GET /
func (h *WebhookHandler) Root(w http.ResponseWriter, r *http.Request) {
	alertEmail := h.cfg.AlertEmail
	if alertEmail == "" {
		alertEmail = "Not configured"
	}

	example := "Not configured"
	if h.cfg.SecretConfigured() {
		example = fmt.Sprintf("https://%s/webhook/%s...", h.cfg.WebhookDomain, truncate(h.cfg.SecretToken, 16))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "EPN.bz Webhook Service is running",
		"version":    ServiceVersion,
		"uniqueness": "partner + uniq_id + order_status",
		"error_handling": map[string]any{
			"database_errors":    "HTTP 503 + email notification + relay retry",
			"email_alerts":       alertEmail,
			"duplicate_handling": "HTTP 200 OK (expected behavior)",
		},
		"endpoints": map[string]any{
			"health":      "/health",
			"metrics":     "/metrics",
			"webhook_url": fmt.Sprintf("https://%s/webhook/{SECRET_TOKEN}", h.cfg.WebhookDomain),
			"example":     example,
		},
		"epn_bz_fields": map[string]any{
			"required": []string{"click_id", "order_number"},
			"optional": []string{"uniq_id", "order_status", "offer_name", "revenue", "commission_fee", "currency", "sub", "sub2", "sub3", "sub4", "sub5"},
		},
	})
}

func processingTime(start time.Time) string {
	return fmt.Sprintf("%.3fs", time.Since(start).Seconds())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
