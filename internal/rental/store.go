package rental

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"velorent/internal/domain"
)

// Store persists rentals.
type Store interface {
	Create(ctx context.Context, rental *domain.Rental) error
	ByID(ctx context.Context, id int64) (*domain.Rental, error)
	// ActiveByUser returns the user's active rental with the latest end date,
	// or sentinel.ErrNotFound.
	ActiveByUser(ctx context.Context, userID int64) (*domain.Rental, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Rental, error)
	SetStatus(ctx context.Context, id int64, status domain.RentalStatus) error
	// Activate flips a pending rental to active and credits the paid amount.
	Activate(ctx context.Context, id int64, paid decimal.Decimal) error
	// ExtendPeriod pushes the end date and credits the paid amount.
	ExtendPeriod(ctx context.Context, id int64, days int, paid decimal.Decimal) error
	// Finish completes a rental and stamps the actual end date.
	Finish(ctx context.Context, id int64, at time.Time) error
}
