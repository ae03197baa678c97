package handlers

import (
	"webhook_processing/internal/metrics"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, h *WebhookHandler) {
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/webhook", func(r chi.Router) {
		r.Post("/{secret_token}", h.ReceiveWebhook)
		r.Get("/{secret_token}", h.ReceiveWebhook)
	})
}
