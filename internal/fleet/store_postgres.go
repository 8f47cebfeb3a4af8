package fleet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

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

// PostgresBikeStore is the production BikeStore.
type PostgresBikeStore struct {
	db *sql.DB
}

func NewPostgresBikeStore(db *sql.DB) *PostgresBikeStore {
	return &PostgresBikeStore{db: db}
}

func (s *PostgresBikeStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const bikeColumns = `id, number, model, COALESCE(description, ''), status, COALESCE(location, ''), price_per_hour, price_per_day, created_at`

func (s *PostgresBikeStore) Create(ctx context.Context, bike *domain.Bike) error {
	query := `
		INSERT INTO bikes (number, model, description, status, location, price_per_hour, price_per_day)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, $7)
		RETURNING id, created_at
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		bike.Number, bike.Model, bike.Description, bike.Status, bike.Location,
		bike.PricePerHour, bike.PricePerDay,
	).Scan(&bike.ID, &bike.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("bike number=%s: %w", bike.Number, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert bike: %w", err)
	}
	return nil
}

func (s *PostgresBikeStore) ByID(ctx context.Context, id int64) (*domain.Bike, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+bikeColumns+` FROM bikes WHERE id = $1`, id)
	return scanBike(row)
}

func (s *PostgresBikeStore) List(ctx context.Context) ([]*domain.Bike, error) {
	return s.queryBikes(ctx, `SELECT `+bikeColumns+` FROM bikes ORDER BY number`)
}

func (s *PostgresBikeStore) ListByStatus(ctx context.Context, status domain.BikeStatus) ([]*domain.Bike, error) {
	return s.queryBikes(ctx,
		`SELECT `+bikeColumns+` FROM bikes WHERE status = $1 ORDER BY number`, status)
}

func (s *PostgresBikeStore) UpdateStatus(ctx context.Context, id int64, status domain.BikeStatus) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE bikes SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update bike status: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresBikeStore) queryBikes(ctx context.Context, query string, args ...any) ([]*domain.Bike, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bikes: %w", err)
	}
	defer rows.Close()

	var bikes []*domain.Bike
	for rows.Next() {
		bike, err := scanBike(rows)
		if err != nil {
			return nil, err
		}
		bikes = append(bikes, bike)
	}
	return bikes, rows.Err()
}

func scanBike(row rowScanner) (*domain.Bike, error) {
	var bike domain.Bike
	err := row.Scan(
		&bike.ID, &bike.Number, &bike.Model, &bike.Description, &bike.Status,
		&bike.Location, &bike.PricePerHour, &bike.PricePerDay, &bike.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan bike: %w", err)
	}
	return &bike, nil
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

// PostgresBatteryStore is the production BatteryStore.
type PostgresBatteryStore struct {
	db *sql.DB
}

func NewPostgresBatteryStore(db *sql.DB) *PostgresBatteryStore {
	return &PostgresBatteryStore{db: db}
}

func (s *PostgresBatteryStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const batteryColumns = `id, number, bike_id, COALESCE(capacity, ''), COALESCE(size, ''), status, created_at`

func (s *PostgresBatteryStore) Create(ctx context.Context, battery *domain.Battery) error {
	query := `
		INSERT INTO batteries (number, bike_id, capacity, size, status)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
		RETURNING id, created_at
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		battery.Number, battery.BikeID, battery.Capacity, battery.Size, battery.Status,
	).Scan(&battery.ID, &battery.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("battery number=%s: %w", battery.Number, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert battery: %w", err)
	}
	return nil
}

func (s *PostgresBatteryStore) ListByBike(ctx context.Context, bikeID int64) ([]*domain.Battery, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+batteryColumns+` FROM batteries WHERE bike_id = $1 ORDER BY number`, bikeID)
	if err != nil {
		return nil, fmt.Errorf("list batteries: %w", err)
	}
	defer rows.Close()

	var batteries []*domain.Battery
	for rows.Next() {
		var b domain.Battery
		if err := rows.Scan(&b.ID, &b.Number, &b.BikeID, &b.Capacity, &b.Size, &b.Status, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan battery: %w", err)
		}
		batteries = append(batteries, &b)
	}
	return batteries, rows.Err()
}

func (s *PostgresBatteryStore) UpdateStatus(ctx context.Context, id int64, status domain.BatteryStatus) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE batteries SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update battery status: %w", err)
	}
	return requireRow(res)
}
