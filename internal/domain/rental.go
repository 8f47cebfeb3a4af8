package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RentalType string

const (
	RentalHourly      RentalType = "hourly"
	RentalDaily       RentalType = "daily"
	RentalInstallment RentalType = "installment"
	RentalCustom      RentalType = "custom"
)

type RentalStatus string

const (
	RentalPending   RentalStatus = "pending"
	RentalActive    RentalStatus = "active"
	RentalCompleted RentalStatus = "completed"
	RentalCancelled RentalStatus = "cancelled"
	RentalOverdue   RentalStatus = "overdue"
)

// RentalStatusLabels is the single status→label table shared by every renderer.
var RentalStatusLabels = map[RentalStatus]string{
	RentalPending:   "⏳ Ожидает оплаты",
	RentalActive:    "🟢 Активная",
	RentalCompleted: "✅ Завершена",
	RentalCancelled: "❌ Отменена",
	RentalOverdue:   "⚠️ Просрочена",
}

// Rental ties a user to a bike for a paid period.
type Rental struct {
	ID            int64
	UserID        int64
	BikeID        int64
	Type          RentalType
	Status        RentalStatus
	StartDate     time.Time
	EndDate       time.Time
	ActualEndDate *time.Time
	TotalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	Notes         string
	CreatedAt     time.Time
}

func (r *Rental) IsActive() bool {
	return r.Status == RentalActive
}

func (r *Rental) IsPaid() bool {
	return r.PaidAmount.GreaterThanOrEqual(r.TotalAmount)
}
