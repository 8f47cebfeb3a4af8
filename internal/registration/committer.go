package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"velorent/internal/audit"
	"velorent/internal/domain"
	"velorent/internal/identity"
	"velorent/internal/registration/metrics"
	"velorent/internal/transfer"
	"velorent/pkg/platform/sentinel"
)

// CommitError marks a failed atomic commit. The transaction rolled back, any
// files written during the attempt were removed, and staged data is intact, so
// the user can retry without re-entering anything.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("registration commit: %v", e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// TxRunner wraps a function in one transaction scope.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DocumentGateway fetches a staged artifact and persists it to disk.
type DocumentGateway interface {
	FetchAndStore(ctx context.Context, ref string, ownerID int64, docType domain.DocumentType) (string, error)
}

// Committer turns a complete staged registration into a durable user plus its
// documents in a single transaction. File downloads happen inside the
// transaction's logical scope; since files live outside the relational store,
// any failure deletes the files written so far and aborts the transaction, so
// readers never observe a user without the documents present at commit time.
type Committer struct {
	txr     TxRunner
	users   identity.UserStore
	docs    identity.DocumentStore
	gateway DocumentGateway
	pub     audit.Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewCommitter(
	txr TxRunner,
	users identity.UserStore,
	docs identity.DocumentStore,
	gateway DocumentGateway,
	pub audit.Publisher,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Committer {
	return &Committer{
		txr:     txr,
		users:   users,
		docs:    docs,
		gateway: gateway,
		pub:     pub,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("registration"),
	}
}

// Commit creates the user and all document rows atomically. Call only when the
// staging store reports completeness. Returns sentinel.ErrAlreadyRegistered
// when a durable user already exists (terminal for this attempt), or a
// *CommitError for any other failure (retryable; staging untouched).
func (c *Committer) Commit(ctx context.Context, telegramID int64, staged *StagedRegistration) (*domain.User, error) {
	ctx, span := c.tracer.Start(ctx, "registration.Commit",
		trace.WithAttributes(attribute.Int64("telegram_id", telegramID)))
	defer span.End()

	start := time.Now()
	language := staged.Language
	if language == "" {
		language = "ru"
	}

	var user *domain.User
	err := c.txr.RunInTx(ctx, func(ctx context.Context) error {
		// Re-check inside the transaction: the same user may have completed
		// registration through another path between staging and commit.
		if _, err := c.users.ByTelegramID(ctx, telegramID); err == nil {
			return sentinel.ErrAlreadyRegistered
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("check existing user: %w", err)
		}

		user = &domain.User{
			TelegramID: telegramID,
			Username:   staged.Personal.Username,
			FullName:   staged.Personal.FullName,
			Phone:      staged.Personal.Phone,
			Email:      staged.Personal.Email,
			Language:   language,
			Role:       domain.RoleClient,
			Status:     domain.UserPending,
		}
		if err := c.users.Create(ctx, user); err != nil {
			return err
		}

		var written []string
		for _, docType := range sortedTypes(staged.Documents) {
			ref := staged.Documents[docType]
			path, err := c.gateway.FetchAndStore(ctx, ref, telegramID, docType)
			if err != nil {
				c.cleanupFiles(written)
				return fmt.Errorf("store %s: %w", docType, err)
			}
			written = append(written, path)

			doc := &domain.Document{
				UserID:           user.ID,
				Type:             docType,
				FilePath:         path,
				OriginalFilename: filepath.Base(path),
				Status:           domain.DocumentPending,
			}
			if err := c.docs.Create(ctx, doc); err != nil {
				c.cleanupFiles(written)
				return fmt.Errorf("insert %s row: %w", docType, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyRegistered) {
			c.metrics.RecordCommit("already_registered", time.Since(start))
			return nil, sentinel.ErrAlreadyRegistered
		}

		outcome := "commit_error"
		var transferErr *transfer.Error
		if errors.As(err, &transferErr) {
			outcome = "transfer_error"
		}
		c.metrics.RecordCommit(outcome, time.Since(start))
		c.logger.Error("registration commit failed",
			"telegram_id", telegramID, "outcome", outcome, "error", err)
		_ = c.pub.Emit(ctx, audit.Event{
			Action:     audit.ActionRegistrationError,
			TelegramID: telegramID,
			Detail:     err.Error(),
		})
		return nil, &CommitError{Err: err}
	}

	c.metrics.RecordCommit("success", time.Since(start))
	c.logger.Info("registration committed",
		"telegram_id", telegramID, "user_id", user.ID, "documents", len(staged.Documents))
	_ = c.pub.Emit(ctx, audit.Event{
		Action:     audit.ActionUserRegistered,
		TelegramID: telegramID,
		UserID:     user.ID,
		Subject:    user.FullName,
	})
	return user, nil
}

// cleanupFiles removes artifacts written during a failed attempt. Best effort:
// failures are logged and never escalate past the commit error itself.
func (c *Committer) cleanupFiles(paths []string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.logger.Warn("cleanup of partial upload failed", "path", path, "error", err)
		}
	}
}

func sortedTypes(docs map[domain.DocumentType]string) []domain.DocumentType {
	types := make([]domain.DocumentType, 0, len(docs))
	for t := range docs {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
