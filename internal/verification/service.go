// Package verification implements staff review of uploaded documents and the
// cascade that verifies a user once every document is approved.
package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"velorent/internal/audit"
	"velorent/internal/domain"
	"velorent/pkg/platform/sentinel"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,DocumentStore,Notifier,AuditPublisher

// UserStore is the slice of the identity store the reviewer needs.
type UserStore interface {
	ByID(ctx context.Context, id int64) (*domain.User, error)
	ListByStatus(ctx context.Context, status domain.UserStatus, role domain.UserRole) ([]*domain.User, error)
	UpdateStatus(ctx context.Context, id int64, status domain.UserStatus, verifiedAt *time.Time) error
}

// DocumentStore is the slice of the document store the reviewer needs.
type DocumentStore interface {
	ByID(ctx context.Context, id int64) (*domain.Document, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Document, error)
	SetStatus(ctx context.Context, id int64, status domain.DocumentStatus, reviewerID int64, comment string, at time.Time) error
}

// Notifier delivers a review outcome to the document's owner. Delivery is best
// effort: a failed notification never undoes the review.
type Notifier interface {
	Notify(ctx context.Context, user *domain.User, key string, args ...any) error
}

// AuditPublisher emits review events to the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Decision reports what a review changed.
type Decision struct {
	Document *domain.Document
	Owner    *domain.User
	// OwnerVerified is true when this review was the last approval and the
	// owner's account flipped to verified.
	OwnerVerified bool
}

// Service applies reviewer decisions to documents.
type Service struct {
	users    UserStore
	docs     DocumentStore
	notifier Notifier
	pub      AuditPublisher
	logger   *slog.Logger

	now func() time.Time
}

func NewService(users UserStore, docs DocumentStore, notifier Notifier, pub AuditPublisher, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		docs:     docs,
		notifier: notifier,
		pub:      pub,
		logger:   logger,
		now:      time.Now,
	}
}

var reviewable = map[domain.DocumentStatus]bool{
	domain.DocumentApproved: true,
	domain.DocumentRejected: true,
	domain.DocumentRevision: true,
}

// ReviewDocument records a reviewer's decision for one document. Approving the
// last pending document verifies the owner: a user is verified if and only if
// every one of their documents is approved.
func (s *Service) ReviewDocument(ctx context.Context, docID int64, status domain.DocumentStatus, reviewerID int64, comment string) (*Decision, error) {
	if !reviewable[status] {
		return nil, fmt.Errorf("status %q: %w", status, sentinel.ErrInvalidState)
	}

	doc, err := s.docs.ByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if err := s.docs.SetStatus(ctx, doc.ID, status, reviewerID, comment, at); err != nil {
		return nil, fmt.Errorf("set document status: %w", err)
	}
	doc.Status = status
	doc.AdminComment = comment
	doc.VerifiedBy = &reviewerID
	doc.VerifiedAt = &at

	owner, err := s.users.ByID(ctx, doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("load document owner: %w", err)
	}

	_ = s.pub.Emit(ctx, audit.Event{
		Action:     audit.ActionDocumentReviewed,
		TelegramID: owner.TelegramID,
		UserID:     owner.ID,
		ActorID:    reviewerID,
		Subject:    string(doc.Type),
		Detail:     string(status),
	})

	s.notify(ctx, owner, "verification.document_"+string(status), domain.DocumentTypeLabels[doc.Type], comment)

	decision := &Decision{Document: doc, Owner: owner}
	if status == domain.DocumentApproved && !owner.IsVerified() {
		verified, err := s.allApproved(ctx, owner.ID)
		if err != nil {
			return nil, err
		}
		if verified {
			if err := s.users.UpdateStatus(ctx, owner.ID, domain.UserVerified, &at); err != nil {
				return nil, fmt.Errorf("verify user: %w", err)
			}
			owner.Status = domain.UserVerified
			owner.VerifiedAt = &at
			decision.OwnerVerified = true

			s.logger.Info("user verified",
				"user_id", owner.ID, "telegram_id", owner.TelegramID, "reviewer_id", reviewerID)
			_ = s.pub.Emit(ctx, audit.Event{
				Action:     audit.ActionUserVerified,
				TelegramID: owner.TelegramID,
				UserID:     owner.ID,
				ActorID:    reviewerID,
				Subject:    owner.FullName,
			})
			s.notify(ctx, owner, "verification.account_verified")
		}
	}
	return decision, nil
}

// PendingUsers lists clients whose registration awaits review.
func (s *Service) PendingUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.ListByStatus(ctx, domain.UserPending, domain.RoleClient)
}

// UserDocuments returns every document of one user, for the review screen.
func (s *Service) UserDocuments(ctx context.Context, userID int64) ([]*domain.Document, error) {
	return s.docs.ListByUser(ctx, userID)
}

func (s *Service) allApproved(ctx context.Context, userID int64) (bool, error) {
	docs, err := s.docs.ListByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list owner documents: %w", err)
	}
	if len(docs) == 0 {
		return false, nil
	}
	for _, d := range docs {
		if d.Status != domain.DocumentApproved {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) notify(ctx context.Context, user *domain.User, key string, args ...any) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, user, key, args...); err != nil {
		s.logger.Warn("review notification failed",
			"user_id", user.ID, "key", key, "error", err)
	}
}
