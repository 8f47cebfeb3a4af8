package rental

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"velorent/internal/audit"
	"velorent/internal/domain"
	"velorent/internal/fleet"
	"velorent/internal/payment"
	"velorent/pkg/platform/sentinel"
)

// TxRunner wraps a function in one transaction scope.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service runs the rental lifecycle: pending on creation, active once paid,
// extended by further payments, completed by staff.
type Service struct {
	rentals  Store
	bikes    fleet.BikeStore
	payments *payment.Service
	txr      TxRunner
	pub      audit.Publisher
	logger   *slog.Logger

	now func() time.Time
}

func NewService(rentals Store, bikes fleet.BikeStore, payments *payment.Service, txr TxRunner, pub audit.Publisher, logger *slog.Logger) *Service {
	return &Service{
		rentals:  rentals,
		bikes:    bikes,
		payments: payments,
		txr:      txr,
		pub:      pub,
		logger:   logger,
		now:      time.Now,
	}
}

// Start creates a pending rental for a verified user and a payment intent for
// the chosen tariff. The rental activates when the payment webhook arrives.
func (s *Service) Start(ctx context.Context, user *domain.User, bikeID int64, tariffKey string) (*domain.Rental, *payment.Intent, error) {
	if !user.IsVerified() {
		return nil, nil, fmt.Errorf("user %d not verified: %w", user.ID, sentinel.ErrInvalidState)
	}
	tariff, ok := TariffByKey(tariffKey)
	if !ok {
		return nil, nil, fmt.Errorf("tariff %q: %w", tariffKey, sentinel.ErrNotFound)
	}

	bike, err := s.bikes.ByID(ctx, bikeID)
	if err != nil {
		return nil, nil, err
	}
	if !bike.IsAvailable() {
		return nil, nil, fmt.Errorf("bike %s: %w", bike.Number, sentinel.ErrConflict)
	}

	start := s.now()
	rental := &domain.Rental{
		UserID:      user.ID,
		BikeID:      bike.ID,
		Type:        domain.RentalCustom,
		Status:      domain.RentalPending,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, tariff.Days),
		TotalAmount: tariff.Price,
	}
	if err := s.rentals.Create(ctx, rental); err != nil {
		return nil, nil, err
	}

	intent, err := s.createPayment(ctx, rental, user.ID, tariff, domain.PaymentRental)
	if err != nil {
		// No intent means the user can never pay this rental; drop it.
		if cancelErr := s.rentals.SetStatus(ctx, rental.ID, domain.RentalCancelled); cancelErr != nil {
			s.logger.Error("cancel unpayable rental failed", "rental_id", rental.ID, "error", cancelErr)
		}
		return nil, nil, err
	}

	s.logger.Info("rental started",
		"rental_id", rental.ID, "user_id", user.ID, "bike_id", bike.ID, "tariff", tariff.Key)
	return rental, intent, nil
}

// Extend creates an extension payment for the user's active rental. The end
// date moves only when the payment settles.
func (s *Service) Extend(ctx context.Context, user *domain.User, tariffKey string) (*domain.Rental, *payment.Intent, error) {
	tariff, ok := TariffByKey(tariffKey)
	if !ok {
		return nil, nil, fmt.Errorf("tariff %q: %w", tariffKey, sentinel.ErrNotFound)
	}

	rental, err := s.rentals.ActiveByUser(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	intent, err := s.createPayment(ctx, rental, user.ID, tariff, domain.PaymentExtension)
	if err != nil {
		return nil, nil, err
	}
	return rental, intent, nil
}

func (s *Service) createPayment(ctx context.Context, rental *domain.Rental, userID int64, tariff Tariff, kind domain.PaymentType) (*payment.Intent, error) {
	p := &domain.Payment{
		RentalID:    &rental.ID,
		UserID:      userID,
		Amount:      tariff.Price,
		Type:        kind,
		Description: fmt.Sprintf("Аренда велосипеда, тариф «%s»", tariff.Name),
		Metadata:    map[string]any{"extension_days": tariff.Days, "tariff": tariff.Key},
	}
	return s.payments.Create(ctx, p)
}

// OnPaymentSucceeded settles a paid rental or extension. Implements
// payment.Settler; runs in one transaction so the rental and the bike never
// disagree.
func (s *Service) OnPaymentSucceeded(ctx context.Context, p *domain.Payment) error {
	if p.RentalID == nil {
		return nil
	}

	switch p.Type {
	case domain.PaymentRental:
		return s.txr.RunInTx(ctx, func(ctx context.Context) error {
			rental, err := s.rentals.ByID(ctx, *p.RentalID)
			if err != nil {
				return err
			}
			if err := s.rentals.Activate(ctx, rental.ID, p.Amount); err != nil {
				return err
			}
			if err := s.bikes.UpdateStatus(ctx, rental.BikeID, domain.BikeRented); err != nil {
				return err
			}
			s.logger.Info("rental activated", "rental_id", rental.ID, "payment_id", p.ID)
			return nil
		})
	case domain.PaymentExtension:
		days := extensionDays(p)
		if err := s.rentals.ExtendPeriod(ctx, *p.RentalID, days, p.Amount); err != nil {
			return err
		}
		s.logger.Info("rental extended", "rental_id", *p.RentalID, "days", days)
		_ = s.pub.Emit(ctx, audit.Event{
			Action:  audit.ActionRentalExtended,
			UserID:  p.UserID,
			Subject: fmt.Sprintf("rental %d", *p.RentalID),
			Detail:  fmt.Sprintf("+%d days", days),
		})
		return nil
	default:
		return nil
	}
}

// Complete ends an active rental and frees the bike.
func (s *Service) Complete(ctx context.Context, rentalID int64) error {
	return s.txr.RunInTx(ctx, func(ctx context.Context) error {
		rental, err := s.rentals.ByID(ctx, rentalID)
		if err != nil {
			return err
		}
		if !rental.IsActive() {
			return fmt.Errorf("rental %d is %s: %w", rentalID, rental.Status, sentinel.ErrInvalidState)
		}
		if err := s.rentals.Finish(ctx, rentalID, s.now()); err != nil {
			return err
		}
		return s.bikes.UpdateStatus(ctx, rental.BikeID, domain.BikeAvailable)
	})
}

// Active returns the user's active rental, or sentinel.ErrNotFound.
func (s *Service) Active(ctx context.Context, userID int64) (*domain.Rental, error) {
	return s.rentals.ActiveByUser(ctx, userID)
}

// History returns the user's rentals, newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]*domain.Rental, error) {
	return s.rentals.ListByUser(ctx, userID)
}

func extensionDays(p *domain.Payment) int {
	if raw, ok := p.Metadata["extension_days"]; ok {
		// JSON numbers round-trip as float64.
		switch v := raw.(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
	}
	return Tariffs[0].Days
}
