package payment

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"velorent/internal/audit"
	"velorent/internal/domain"
	"velorent/pkg/platform/sentinel"
)

// Settler reacts to a payment turning succeeded: activating a pending rental
// or pushing an extended rental's end date.
type Settler interface {
	OnPaymentSucceeded(ctx context.Context, payment *domain.Payment) error
}

// Service owns payment records and webhook settlement.
type Service struct {
	store      Store
	provider   Provider
	pub        audit.Publisher
	logger     *slog.Logger
	webhookKey *rsa.PublicKey
	settler    Settler

	now func() time.Time
}

func NewService(store Store, provider Provider, pub audit.Publisher, webhookKeyPEM string, logger *slog.Logger) (*Service, error) {
	s := &Service{
		store:    store,
		provider: provider,
		pub:      pub,
		logger:   logger,
		now:      time.Now,
	}
	if webhookKeyPEM != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(webhookKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse webhook key: %w", err)
		}
		s.webhookKey = key
	}
	return s, nil
}

// AttachSettler breaks the construction cycle: the rental service both creates
// payments through this service and settles them.
func (s *Service) AttachSettler(settler Settler) {
	s.settler = settler
}

// Create registers an intent with the provider and records the payment as
// pending. The returned payment carries the provider's external id and the
// intent the transport shows to the user.
func (s *Service) Create(ctx context.Context, payment *domain.Payment) (*Intent, error) {
	intent, err := s.provider.CreatePayment(ctx, CreateRequest{
		Amount:  payment.Amount,
		Purpose: payment.Description,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	payment.ExternalID = intent.ExternalID
	payment.Status = domain.PaymentPending
	if payment.Currency == "" {
		payment.Currency = "RUB"
	}
	if err := s.store.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("payment created",
		"payment_id", payment.ID, "external_id", payment.ExternalID,
		"amount", payment.Amount.String(), "type", payment.Type)
	return intent, nil
}

// Status returns the recorded status, falling back to a provider poll when the
// payment is still in flight.
func (s *Service) Status(ctx context.Context, externalID string) (domain.PaymentStatus, error) {
	payment, err := s.store.ByExternalID(ctx, externalID)
	if err == nil && (payment.Status == domain.PaymentSucceeded || payment.Status == domain.PaymentCancelled || payment.Status == domain.PaymentFailed) {
		return payment.Status, nil
	}
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return "", err
	}
	return s.provider.GetPaymentStatus(ctx, externalID)
}

// ListByUser returns a user's payment history, newest first.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]*domain.Payment, error) {
	return s.store.ListByUser(ctx, userID)
}

type webhookPayload struct {
	EventType string `json:"eventType"`
	Event     string `json:"event"`
	Data      struct {
		OperationID string `json:"operationId"`
		PaymentID   string `json:"paymentId"`
		ID          string `json:"id"`
		QrcID       string `json:"qrcId"`
		Status      string `json:"status"`
	} `json:"Data"`
}

func (p webhookPayload) operationID() string {
	for _, id := range []string{p.Data.OperationID, p.Data.PaymentID, p.Data.QrcID, p.Data.ID} {
		if id != "" {
			return id
		}
	}
	return ""
}

// HandleWebhook processes one bank notification. The body is either a JWT
// signed with the bank's webhook key or, on test stands, plain JSON.
// Unknown operation ids are acknowledged and dropped: the bank retries
// rejected deliveries and an id we never issued will not become ours later.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) error {
	payload, err := s.decodeWebhook(body)
	if err != nil {
		return err
	}

	operationID := payload.operationID()
	status := strings.ToLower(payload.Data.Status)
	s.logger.Info("payment webhook received",
		"event", payload.EventType, "operation_id", operationID, "status", status)
	if operationID == "" {
		return fmt.Errorf("webhook without operation id: %w", sentinel.ErrInvalidState)
	}

	switch {
	case isSucceededStatus(status):
		return s.settle(ctx, operationID)
	case isCancelledStatus(status):
		return s.cancel(ctx, operationID)
	default:
		return nil
	}
}

func (s *Service) decodeWebhook(body []byte) (*webhookPayload, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		var payload webhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decode webhook json: %w", err)
		}
		return &payload, nil
	}

	if s.webhookKey == nil {
		return nil, fmt.Errorf("jwt webhook without configured key: %w", sentinel.ErrInvalidState)
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(trimmed, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return s.webhookKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify webhook jwt: %w", err)
	}

	raw, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("re-encode webhook claims: %w", err)
	}
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook claims: %w", err)
	}
	return &payload, nil
}

func (s *Service) settle(ctx context.Context, operationID string) error {
	payment, err := s.store.ByExternalID(ctx, operationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.Warn("webhook for unknown payment", "operation_id", operationID)
		return nil
	}
	if err != nil {
		return err
	}
	if payment.IsPaid() {
		// Banks redeliver; settling twice would double-extend a rental.
		return nil
	}

	paidAt := s.now()
	if err := s.store.SetStatus(ctx, payment.ID, domain.PaymentSucceeded, &paidAt); err != nil {
		return err
	}
	payment.Status = domain.PaymentSucceeded
	payment.PaidAt = &paidAt

	if s.settler != nil {
		if err := s.settler.OnPaymentSucceeded(ctx, payment); err != nil {
			return fmt.Errorf("settle payment %d: %w", payment.ID, err)
		}
	}

	_ = s.pub.Emit(ctx, audit.Event{
		Action:  audit.ActionPaymentSucceeded,
		UserID:  payment.UserID,
		Subject: payment.ExternalID,
		Detail:  payment.Amount.String() + " " + payment.Currency,
	})
	s.logger.Info("payment settled", "payment_id", payment.ID, "external_id", operationID)
	return nil
}

func (s *Service) cancel(ctx context.Context, operationID string) error {
	payment, err := s.store.ByExternalID(ctx, operationID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.Warn("webhook for unknown payment", "operation_id", operationID)
		return nil
	}
	if err != nil {
		return err
	}
	if payment.Status == domain.PaymentCancelled || payment.IsPaid() {
		return nil
	}
	if err := s.store.SetStatus(ctx, payment.ID, domain.PaymentCancelled, nil); err != nil {
		return err
	}
	s.logger.Info("payment cancelled", "payment_id", payment.ID, "external_id", operationID)
	return nil
}

func isSucceededStatus(status string) bool {
	switch status {
	case "succeeded", "completed", "paid", "success":
		return true
	}
	return false
}

func isCancelledStatus(status string) bool {
	switch status {
	case "canceled", "cancelled", "failed", "rejected":
		return true
	}
	return false
}
