// Package payment creates payment intents with the bank and settles them from
// webhook notifications.
package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"velorent/internal/domain"
)

// CreateRequest describes one payment to collect.
type CreateRequest struct {
	Amount  decimal.Decimal
	Purpose string
}

// Intent is the provider's handle for a created payment. PaymentURL is what
// the user opens to pay; QRImage is an optional inline QR rendering.
type Intent struct {
	ExternalID string
	PaymentURL string
	QRImage    string
}

// Provider abstracts the bank. One provider is configured at a time; the
// choice between SBP and card acquiring is the provider's own business.
type Provider interface {
	CreatePayment(ctx context.Context, req CreateRequest) (*Intent, error)
	GetPaymentStatus(ctx context.Context, externalID string) (domain.PaymentStatus, error)
}
