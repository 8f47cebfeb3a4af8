package rental

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"velorent/internal/domain"
	"velorent/pkg/platform/sentinel"
	txcontext "velorent/pkg/platform/tx"
)

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresStore is the production rental Store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const rentalColumns = `id, user_id, bike_id, rental_type, status, start_date, end_date, actual_end_date, total_amount, paid_amount, COALESCE(notes, ''), created_at`

func (s *PostgresStore) Create(ctx context.Context, rental *domain.Rental) error {
	query := `
		INSERT INTO rentals (user_id, bike_id, rental_type, status, start_date, end_date, total_amount, paid_amount, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
		RETURNING id, created_at
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		rental.UserID, rental.BikeID, rental.Type, rental.Status,
		rental.StartDate, rental.EndDate, rental.TotalAmount, rental.PaidAmount, rental.Notes,
	).Scan(&rental.ID, &rental.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert rental: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByID(ctx context.Context, id int64) (*domain.Rental, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+rentalColumns+` FROM rentals WHERE id = $1`, id)
	return scanRental(row)
}

func (s *PostgresStore) ActiveByUser(ctx context.Context, userID int64) (*domain.Rental, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT `+rentalColumns+` FROM rentals
		WHERE user_id = $1 AND status = $2
		ORDER BY end_date DESC
		LIMIT 1`,
		userID, domain.RentalActive)
	return scanRental(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID int64) ([]*domain.Rental, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+rentalColumns+` FROM rentals WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list rentals: %w", err)
	}
	defer rows.Close()

	var rentals []*domain.Rental
	for rows.Next() {
		rental, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, rental)
	}
	return rentals, rows.Err()
}

func (s *PostgresStore) SetStatus(ctx context.Context, id int64, status domain.RentalStatus) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE rentals SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update rental status: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Activate(ctx context.Context, id int64, paid decimal.Decimal) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE rentals
		SET status = $2, paid_amount = paid_amount + $3, updated_at = now()
		WHERE id = $1 AND status = $4`,
		id, domain.RentalActive, paid, domain.RentalPending)
	if err != nil {
		return fmt.Errorf("activate rental: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) ExtendPeriod(ctx context.Context, id int64, days int, paid decimal.Decimal) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE rentals
		SET end_date = end_date + make_interval(days => $2),
		    paid_amount = paid_amount + $3,
		    updated_at = now()
		WHERE id = $1`,
		id, days, paid)
	if err != nil {
		return fmt.Errorf("extend rental: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Finish(ctx context.Context, id int64, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE rentals
		SET status = $2, actual_end_date = $3, updated_at = now()
		WHERE id = $1`,
		id, domain.RentalCompleted, at)
	if err != nil {
		return fmt.Errorf("finish rental: %w", err)
	}
	return requireRow(res)
}

func scanRental(row rowScanner) (*domain.Rental, error) {
	var r domain.Rental
	var actualEnd sql.NullTime
	err := row.Scan(
		&r.ID, &r.UserID, &r.BikeID, &r.Type, &r.Status, &r.StartDate, &r.EndDate,
		&actualEnd, &r.TotalAmount, &r.PaidAmount, &r.Notes, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan rental: %w", err)
	}
	if actualEnd.Valid {
		r.ActualEndDate = &actualEnd.Time
	}
	return &r, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
