package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"velorent/internal/domain"
	"velorent/pkg/platform/sentinel"
	txcontext "velorent/pkg/platform/tx"

	"github.com/lib/pq"
)

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresUserStore is the production UserStore. When a transaction is present
// in context the store runs inside it; otherwise it uses the shared pool.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const userColumns = `id, telegram_id, COALESCE(username, ''), full_name, COALESCE(phone, ''), COALESCE(email, ''), language, role, status, created_at, verified_at`

func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (telegram_id, username, full_name, phone, email, language, role, status)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
		RETURNING id, created_at
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		user.TelegramID, user.Username, user.FullName, user.Phone, user.Email,
		user.Language, user.Role, user.Status,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("user telegram_id=%d: %w", user.TelegramID, sentinel.ErrAlreadyRegistered)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) ByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	return scanUser(row)
}

func (s *PostgresUserStore) ByID(ctx context.Context, id int64) (*domain.User, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *PostgresUserStore) ListByStatus(ctx context.Context, status domain.UserStatus, role domain.UserRole) ([]*domain.User, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE status = $1 AND role = $2 ORDER BY created_at DESC`,
		status, role)
	if err != nil {
		return nil, fmt.Errorf("list users by status: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *PostgresUserStore) UpdateStatus(ctx context.Context, id int64, status domain.UserStatus, verifiedAt *time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE users SET status = $2, verified_at = $3, updated_at = now() WHERE id = $1`,
		id, status, verifiedAt)
	if err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresUserStore) UpdateLanguage(ctx context.Context, telegramID int64, language string) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE users SET language = $2, updated_at = now() WHERE telegram_id = $1`,
		telegramID, language)
	if err != nil {
		return fmt.Errorf("update user language: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var verifiedAt sql.NullTime
	err := row.Scan(
		&user.ID, &user.TelegramID, &user.Username, &user.FullName, &user.Phone,
		&user.Email, &user.Language, &user.Role, &user.Status, &user.CreatedAt,
		&verifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if verifiedAt.Valid {
		user.VerifiedAt = &verifiedAt.Time
	}
	return &user, nil
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

// PostgresDocumentStore is the production DocumentStore.
type PostgresDocumentStore struct {
	db *sql.DB
}

func NewPostgresDocumentStore(db *sql.DB) *PostgresDocumentStore {
	return &PostgresDocumentStore{db: db}
}

func (s *PostgresDocumentStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const documentColumns = `id, user_id, document_type, file_path, COALESCE(original_filename, ''), COALESCE(file_size, 0), status, COALESCE(admin_comment, ''), verified_by, uploaded_at, verified_at`

func (s *PostgresDocumentStore) Create(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (user_id, document_type, file_path, original_filename, file_size, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		RETURNING id, uploaded_at
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		doc.UserID, doc.Type, doc.FilePath, doc.OriginalFilename, doc.FileSize, doc.Status,
	).Scan(&doc.ID, &doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresDocumentStore) ByID(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

func (s *PostgresDocumentStore) ListByUser(ctx context.Context, userID int64) ([]*domain.Document, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE user_id = $1 ORDER BY uploaded_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PostgresDocumentStore) SetStatus(ctx context.Context, id int64, status domain.DocumentStatus, reviewerID int64, comment string, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE documents
		SET status = $2, verified_by = NULLIF($3, 0), admin_comment = NULLIF($4, ''), verified_at = $5, updated_at = now()
		WHERE id = $1`,
		id, status, reviewerID, comment, at)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresDocumentStore) ListPaths(ctx context.Context) ([]string, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `SELECT file_path FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("list document paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var verifiedBy sql.NullInt64
	var verifiedAt sql.NullTime
	err := row.Scan(
		&doc.ID, &doc.UserID, &doc.Type, &doc.FilePath, &doc.OriginalFilename,
		&doc.FileSize, &doc.Status, &doc.AdminComment, &verifiedBy, &doc.UploadedAt,
		&verifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	if verifiedBy.Valid {
		doc.VerifiedBy = &verifiedBy.Int64
	}
	if verifiedAt.Valid {
		doc.VerifiedAt = &verifiedAt.Time
	}
	return &doc, nil
}
