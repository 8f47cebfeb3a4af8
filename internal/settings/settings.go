// Package settings stores the single-row system configuration edited from the
// admin panel.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"velorent/internal/domain"
	txcontext "velorent/pkg/platform/tx"
)

// Store persists the settings row.
type Store interface {
	// Get returns the settings row, creating the default one on first access.
	Get(ctx context.Context) (*domain.Settings, error)
	Update(ctx context.Context, s *domain.Settings) error
}

// PostgresStore is the production settings Store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const settingsColumns = `id, company_name, address, phone, COALESCE(email, ''), working_hours, COALESCE(description, ''), COALESCE(website, ''), maintenance_mode, COALESCE(maintenance_message, ''), updated_at`

func (s *PostgresStore) Get(ctx context.Context) (*domain.Settings, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM system_settings ORDER BY id LIMIT 1`)

	settings, err := scanSettings(row)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// First access bootstraps the defaults declared in the schema.
	row = s.execer(ctx).QueryRowContext(ctx,
		`INSERT INTO system_settings DEFAULT VALUES RETURNING `+settingsColumns)
	return scanSettings(row)
}

func (s *PostgresStore) Update(ctx context.Context, settings *domain.Settings) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE system_settings
		SET company_name = $2, address = $3, phone = $4, email = NULLIF($5, ''),
		    working_hours = $6, description = NULLIF($7, ''), website = NULLIF($8, ''),
		    maintenance_mode = $9, maintenance_message = NULLIF($10, ''),
		    updated_at = now()
		WHERE id = $1`,
		settings.ID, settings.CompanyName, settings.Address, settings.Phone,
		settings.Email, settings.WorkingHours, settings.Description, settings.Website,
		settings.MaintenanceMode, settings.MaintenanceMessage)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

func scanSettings(row *sql.Row) (*domain.Settings, error) {
	var st domain.Settings
	var updatedAt sql.NullTime
	err := row.Scan(
		&st.ID, &st.CompanyName, &st.Address, &st.Phone, &st.Email,
		&st.WorkingHours, &st.Description, &st.Website,
		&st.MaintenanceMode, &st.MaintenanceMessage, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan settings: %w", err)
	}
	if updatedAt.Valid {
		st.UpdatedAt = &updatedAt.Time
	}
	return &st, nil
}

// Service exposes settings to the bot layer.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) Get(ctx context.Context) (*domain.Settings, error) {
	return s.store.Get(ctx)
}

func (s *Service) Update(ctx context.Context, settings *domain.Settings) error {
	if err := s.store.Update(ctx, settings); err != nil {
		return err
	}
	s.logger.Info("settings updated", "maintenance_mode", settings.MaintenanceMode)
	return nil
}

// MaintenanceMessage returns the maintenance banner when maintenance mode is
// on, or empty when the bot should serve normally.
func (s *Service) MaintenanceMessage(ctx context.Context) (string, error) {
	settings, err := s.store.Get(ctx)
	if err != nil {
		return "", err
	}
	if !settings.MaintenanceMode {
		return "", nil
	}
	if settings.MaintenanceMessage == "" {
		return "Бот временно недоступен. Попробуйте позже.", nil
	}
	return settings.MaintenanceMessage, nil
}
