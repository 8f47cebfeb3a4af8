package fleet

import (
	"context"
	"fmt"
	"log/slog"

	"velorent/internal/domain"
)

// Service is the staff-facing fleet surface.
type Service struct {
	bikes     BikeStore
	batteries BatteryStore
	logger    *slog.Logger
}

func NewService(bikes BikeStore, batteries BatteryStore, logger *slog.Logger) *Service {
	return &Service{bikes: bikes, batteries: batteries, logger: logger}
}

// AddBike registers a new bike as available.
func (s *Service) AddBike(ctx context.Context, bike *domain.Bike) error {
	if bike.Status == "" {
		bike.Status = domain.BikeAvailable
	}
	if err := s.bikes.Create(ctx, bike); err != nil {
		return err
	}
	s.logger.Info("bike added", "bike_id", bike.ID, "number", bike.Number)
	return nil
}

// AttachBattery registers a battery on an existing bike.
func (s *Service) AttachBattery(ctx context.Context, battery *domain.Battery) error {
	if _, err := s.bikes.ByID(ctx, battery.BikeID); err != nil {
		return fmt.Errorf("bike %d: %w", battery.BikeID, err)
	}
	if battery.Status == "" {
		battery.Status = domain.BatteryAvailable
	}
	if err := s.batteries.Create(ctx, battery); err != nil {
		return err
	}
	s.logger.Info("battery attached", "battery_id", battery.ID, "bike_id", battery.BikeID)
	return nil
}

// AvailableBikes lists bikes a client can rent right now.
func (s *Service) AvailableBikes(ctx context.Context) ([]*domain.Bike, error) {
	return s.bikes.ListByStatus(ctx, domain.BikeAvailable)
}

// AllBikes lists the whole fleet, for the admin panel.
func (s *Service) AllBikes(ctx context.Context) ([]*domain.Bike, error) {
	return s.bikes.List(ctx)
}

// Bike loads one bike with its batteries.
func (s *Service) Bike(ctx context.Context, id int64) (*domain.Bike, []*domain.Battery, error) {
	bike, err := s.bikes.ByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	batteries, err := s.batteries.ListByBike(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return bike, batteries, nil
}

// SetBikeStatus moves a bike between lifecycle states.
func (s *Service) SetBikeStatus(ctx context.Context, id int64, status domain.BikeStatus) error {
	if err := s.bikes.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	s.logger.Info("bike status changed", "bike_id", id, "status", status)
	return nil
}

// SetBatteryStatus moves a battery between lifecycle states.
func (s *Service) SetBatteryStatus(ctx context.Context, id int64, status domain.BatteryStatus) error {
	return s.batteries.UpdateStatus(ctx, id, status)
}
