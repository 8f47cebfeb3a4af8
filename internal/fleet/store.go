// Package fleet manages the rentable bikes and their batteries.
package fleet

import (
	"context"

	"velorent/internal/domain"
)

// BikeStore persists bikes.
type BikeStore interface {
	Create(ctx context.Context, bike *domain.Bike) error
	ByID(ctx context.Context, id int64) (*domain.Bike, error)
	List(ctx context.Context) ([]*domain.Bike, error)
	ListByStatus(ctx context.Context, status domain.BikeStatus) ([]*domain.Bike, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BikeStatus) error
}

// BatteryStore persists batteries. A battery always belongs to one bike.
type BatteryStore interface {
	Create(ctx context.Context, battery *domain.Battery) error
	ListByBike(ctx context.Context, bikeID int64) ([]*domain.Battery, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BatteryStatus) error
}
