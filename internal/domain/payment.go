package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSucceeded  PaymentStatus = "succeeded"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentFailed     PaymentStatus = "failed"
)

type PaymentType string

const (
	PaymentRental      PaymentType = "rental"
	PaymentExtension   PaymentType = "extension"
	PaymentRepair      PaymentType = "repair"
	PaymentInstallment PaymentType = "installment"
)

// Payment records one attempt to collect money through the payment provider.
// ExternalID is the provider's reference (SBP QR id for Tochka).
type Payment struct {
	ID          int64
	RentalID    *int64
	UserID      int64
	ExternalID  string
	Amount      decimal.Decimal
	Currency    string
	Type        PaymentType
	Status      PaymentStatus
	Description string
	// Metadata carries provider-agnostic extras, like extension_days for
	// rental extension payments.
	Metadata  map[string]any
	CreatedAt time.Time
	PaidAt    *time.Time
}

func (p *Payment) IsPaid() bool {
	return p.Status == PaymentSucceeded
}
