// Package httptransport serves the non-Telegram surface: the bank webhook,
// health checks, and Prometheus metrics.
package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxWebhookBody = 1 << 20

// WebhookProcessor settles bank payment notifications.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, body []byte) error
}

// Handler is the thin HTTP layer. It delegates to services and owns no
// business logic.
type Handler struct {
	payments WebhookProcessor
	health   func(ctx context.Context) error
	logger   *slog.Logger
}

func NewHandler(payments WebhookProcessor, health func(ctx context.Context) error, logger *slog.Logger) *Handler {
	return &Handler{payments: payments, health: health, logger: logger}
}

// NewRouter wires all public endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/webhook/tochka", h.handleTochkaWebhook)
	r.Get("/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func (h *Handler) handleTochkaWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	if err := h.payments.HandleWebhook(r.Context(), body); err != nil {
		// Non-2xx makes the bank redeliver; settlement is idempotent.
		h.logger.Error("webhook processing failed", "error", err)
		http.Error(w, "processing error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
