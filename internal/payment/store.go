package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"velorent/internal/domain"
	"velorent/pkg/platform/sentinel"
	txcontext "velorent/pkg/platform/tx"
)

// Store persists payment records.
type Store interface {
	Create(ctx context.Context, payment *domain.Payment) error
	ByExternalID(ctx context.Context, externalID string) (*domain.Payment, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Payment, error)
	SetStatus(ctx context.Context, id int64, status domain.PaymentStatus, paidAt *time.Time) error
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresStore is the production payment Store.
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

const paymentColumns = `id, rental_id, user_id, COALESCE(external_payment_id, ''), amount, currency, payment_type, status, COALESCE(description, ''), metadata, created_at, paid_at`

func (s *PostgresStore) Create(ctx context.Context, payment *domain.Payment) error {
	var metadata []byte
	if payment.Metadata != nil {
		var err error
		metadata, err = json.Marshal(payment.Metadata)
		if err != nil {
			return fmt.Errorf("marshal payment metadata: %w", err)
		}
	}

	query := `
		INSERT INTO payments (rental_id, user_id, external_payment_id, amount, currency, payment_type, status, description, metadata)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, NULLIF($8, ''), $9)
		RETURNING id, created_at
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		payment.RentalID, payment.UserID, payment.ExternalID, payment.Amount,
		payment.Currency, payment.Type, payment.Status, payment.Description, metadata,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByExternalID(ctx context.Context, externalID string) (*domain.Payment, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE external_payment_id = $1`, externalID)
	return scanPayment(row)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID int64) ([]*domain.Payment, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func (s *PostgresStore) SetStatus(ctx context.Context, id int64, status domain.PaymentStatus, paidAt *time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE payments SET status = $2, paid_at = $3, updated_at = now() WHERE id = $1`,
		id, status, paidAt)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var rentalID sql.NullInt64
	var metadata []byte
	var paidAt sql.NullTime
	err := row.Scan(
		&p.ID, &rentalID, &p.UserID, &p.ExternalID, &p.Amount, &p.Currency,
		&p.Type, &p.Status, &p.Description, &metadata, &p.CreatedAt, &paidAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	if rentalID.Valid {
		p.RentalID = &rentalID.Int64
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &p.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal payment metadata: %w", err)
		}
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	return &p, nil
}
