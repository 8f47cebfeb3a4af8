package verification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"velorent/internal/audit"
	"velorent/internal/domain"
	"velorent/internal/verification/mocks"
	"velorent/pkg/platform/sentinel"
)

type ServiceSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockUsers    *mocks.MockUserStore
	mockDocs     *mocks.MockDocumentStore
	mockNotifier *mocks.MockNotifier
	mockAudit    *mocks.MockAuditPublisher
	service      *Service
	now          time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockUsers = mocks.NewMockUserStore(s.ctrl)
	s.mockDocs = mocks.NewMockDocumentStore(s.ctrl)
	s.mockNotifier = mocks.NewMockNotifier(s.ctrl)
	s.mockAudit = mocks.NewMockAuditPublisher(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.mockUsers, s.mockDocs, s.mockNotifier, s.mockAudit, logger)
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.service.now = func() time.Time { return s.now }
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) owner() *domain.User {
	return &domain.User{
		ID:         7,
		TelegramID: 111222333,
		FullName:   "Иван Петров",
		Role:       domain.RoleClient,
		Status:     domain.UserPending,
	}
}

func (s *ServiceSuite) TestReviewDocument_InvalidStatus() {
	_, err := s.service.ReviewDocument(context.Background(), 1, domain.DocumentPending, 99, "")
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *ServiceSuite) TestReviewDocument_UnknownDocument() {
	s.mockDocs.EXPECT().ByID(gomock.Any(), int64(404)).Return(nil, sentinel.ErrNotFound)

	_, err := s.service.ReviewDocument(context.Background(), 404, domain.DocumentApproved, 99, "")
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ServiceSuite) TestReviewDocument_RejectionNotifiesWithoutVerifying() {
	owner := s.owner()
	doc := &domain.Document{ID: 1, UserID: owner.ID, Type: domain.DocPassport, Status: domain.DocumentPending}

	s.mockDocs.EXPECT().ByID(gomock.Any(), int64(1)).Return(doc, nil)
	s.mockDocs.EXPECT().
		SetStatus(gomock.Any(), int64(1), domain.DocumentRejected, int64(99), "blurry photo", s.now).
		Return(nil)
	s.mockUsers.EXPECT().ByID(gomock.Any(), owner.ID).Return(owner, nil)
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	s.mockNotifier.EXPECT().
		Notify(gomock.Any(), owner, "verification.document_rejected", gomock.Any(), gomock.Any()).
		Return(nil)

	decision, err := s.service.ReviewDocument(context.Background(), 1, domain.DocumentRejected, 99, "blurry photo")
	s.Require().NoError(err)
	s.False(decision.OwnerVerified)
	s.Equal(domain.DocumentRejected, decision.Document.Status)
	s.Equal("blurry photo", decision.Document.AdminComment)
}

func (s *ServiceSuite) TestReviewDocument_ApprovalWithPendingSiblingDoesNotVerify() {
	owner := s.owner()
	doc := &domain.Document{ID: 1, UserID: owner.ID, Type: domain.DocPassport, Status: domain.DocumentPending}
	sibling := &domain.Document{ID: 2, UserID: owner.ID, Type: domain.DocSelfie, Status: domain.DocumentPending}

	s.mockDocs.EXPECT().ByID(gomock.Any(), int64(1)).Return(doc, nil)
	s.mockDocs.EXPECT().
		SetStatus(gomock.Any(), int64(1), domain.DocumentApproved, int64(99), "", s.now).
		Return(nil)
	s.mockUsers.EXPECT().ByID(gomock.Any(), owner.ID).Return(owner, nil)
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	s.mockNotifier.EXPECT().
		Notify(gomock.Any(), owner, "verification.document_approved", gomock.Any(), gomock.Any()).
		Return(nil)
	s.mockDocs.EXPECT().ListByUser(gomock.Any(), owner.ID).Return([]*domain.Document{doc, sibling}, nil)

	decision, err := s.service.ReviewDocument(context.Background(), 1, domain.DocumentApproved, 99, "")
	s.Require().NoError(err)
	s.False(decision.OwnerVerified)
	s.Equal(domain.UserPending, decision.Owner.Status)
}

func (s *ServiceSuite) TestReviewDocument_LastApprovalVerifiesOwner() {
	owner := s.owner()
	doc := &domain.Document{ID: 2, UserID: owner.ID, Type: domain.DocSelfie, Status: domain.DocumentPending}
	approved := &domain.Document{ID: 1, UserID: owner.ID, Type: domain.DocPassport, Status: domain.DocumentApproved}

	s.mockDocs.EXPECT().ByID(gomock.Any(), int64(2)).Return(doc, nil)
	s.mockDocs.EXPECT().
		SetStatus(gomock.Any(), int64(2), domain.DocumentApproved, int64(99), "", s.now).
		Return(nil)
	s.mockUsers.EXPECT().ByID(gomock.Any(), owner.ID).Return(owner, nil)
	s.mockNotifier.EXPECT().
		Notify(gomock.Any(), owner, "verification.document_approved", gomock.Any(), gomock.Any()).
		Return(nil)
	// SetStatus above mutates the in-memory doc too, so both come back approved.
	s.mockDocs.EXPECT().ListByUser(gomock.Any(), owner.ID).Return([]*domain.Document{approved, doc}, nil)
	s.mockUsers.EXPECT().UpdateStatus(gomock.Any(), owner.ID, domain.UserVerified, &s.now).Return(nil)
	s.mockNotifier.EXPECT().Notify(gomock.Any(), owner, "verification.account_verified").Return(nil)

	var actions []audit.Action
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Times(2).
		DoAndReturn(func(_ context.Context, e audit.Event) error {
			actions = append(actions, e.Action)
			return nil
		})

	decision, err := s.service.ReviewDocument(context.Background(), 2, domain.DocumentApproved, 99, "")
	s.Require().NoError(err)
	s.True(decision.OwnerVerified)
	s.Equal(domain.UserVerified, decision.Owner.Status)
	s.Equal(&s.now, decision.Owner.VerifiedAt)
	s.Equal([]audit.Action{audit.ActionDocumentReviewed, audit.ActionUserVerified}, actions)
}

func (s *ServiceSuite) TestReviewDocument_NotificationFailureDoesNotFailReview() {
	owner := s.owner()
	doc := &domain.Document{ID: 1, UserID: owner.ID, Type: domain.DocPassport, Status: domain.DocumentPending}
	sibling := &domain.Document{ID: 2, UserID: owner.ID, Type: domain.DocSelfie, Status: domain.DocumentPending}

	s.mockDocs.EXPECT().ByID(gomock.Any(), int64(1)).Return(doc, nil)
	s.mockDocs.EXPECT().
		SetStatus(gomock.Any(), int64(1), domain.DocumentApproved, int64(99), "", s.now).
		Return(nil)
	s.mockUsers.EXPECT().ByID(gomock.Any(), owner.ID).Return(owner, nil)
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)
	s.mockNotifier.EXPECT().
		Notify(gomock.Any(), owner, "verification.document_approved", gomock.Any(), gomock.Any()).
		Return(errors.New("chat not found"))
	s.mockDocs.EXPECT().ListByUser(gomock.Any(), owner.ID).Return([]*domain.Document{doc, sibling}, nil)

	_, err := s.service.ReviewDocument(context.Background(), 1, domain.DocumentApproved, 99, "")
	s.NoError(err)
}
