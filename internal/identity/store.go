package identity

import (
	"context"
	"time"

	"velorent/internal/domain"
)

// UserStore persists durable users. Implementations must honor a transaction
// placed in context via pkg/platform/tx so the registration committer can make
// user and document writes atomic.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	ByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	ByID(ctx context.Context, id int64) (*domain.User, error)
	ListByStatus(ctx context.Context, status domain.UserStatus, role domain.UserRole) ([]*domain.User, error)
	UpdateStatus(ctx context.Context, id int64, status domain.UserStatus, verifiedAt *time.Time) error
	UpdateLanguage(ctx context.Context, telegramID int64, language string) error
}

// DocumentStore persists durable documents.
type DocumentStore interface {
	Create(ctx context.Context, doc *domain.Document) error
	ByID(ctx context.Context, id int64) (*domain.Document, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Document, error)
	SetStatus(ctx context.Context, id int64, status domain.DocumentStatus, reviewerID int64, comment string, at time.Time) error
	// ListPaths returns every stored file path; the cleanup sweeper uses it to
	// tell orphaned uploads from referenced ones.
	ListPaths(ctx context.Context) ([]string, error)
}
