//go:build integration

package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"velorent/internal/domain"
	"velorent/pkg/platform/sentinel"
	"velorent/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	users *PostgresUserStore
	docs  *PostgresDocumentStore
	txr   *SQLTxRunner
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.users = NewPostgresUserStore(s.pg.DB)
	s.docs = NewPostgresDocumentStore(s.pg.DB)
	s.txr = NewSQLTxRunner(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx, "documents", "users"))
}

func (s *PostgresStoreSuite) newUser(telegramID int64) *domain.User {
	return &domain.User{
		TelegramID: telegramID,
		Username:   "ivan",
		FullName:   "Иван Петров",
		Phone:      "+79001234567",
		Language:   "ru",
		Role:       domain.RoleClient,
		Status:     domain.UserPending,
	}
}

func (s *PostgresStoreSuite) TestUserRoundTrip() {
	user := s.newUser(100)
	s.Require().NoError(s.users.Create(s.ctx, user))
	s.NotZero(user.ID)
	s.False(user.CreatedAt.IsZero())

	got, err := s.users.ByTelegramID(s.ctx, 100)
	s.Require().NoError(err)
	s.Equal(user.ID, got.ID)
	s.Equal("Иван Петров", got.FullName)
	s.Equal("+79001234567", got.Phone)
	s.Nil(got.VerifiedAt)
}

func (s *PostgresStoreSuite) TestEmptyOptionalFieldsReadBackEmpty() {
	user := s.newUser(100)
	user.Username = ""
	user.Phone = ""
	s.Require().NoError(s.users.Create(s.ctx, user))

	got, err := s.users.ByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Empty(got.Username)
	s.Empty(got.Phone)
}

func (s *PostgresStoreSuite) TestDuplicateTelegramID() {
	s.Require().NoError(s.users.Create(s.ctx, s.newUser(100)))

	err := s.users.Create(s.ctx, s.newUser(100))
	s.ErrorIs(err, sentinel.ErrAlreadyRegistered)
}

func (s *PostgresStoreSuite) TestByTelegramIDNotFound() {
	_, err := s.users.ByTelegramID(s.ctx, 999)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateStatusSetsVerifiedAt() {
	user := s.newUser(100)
	s.Require().NoError(s.users.Create(s.ctx, user))

	at := time.Now().UTC().Truncate(time.Second)
	s.Require().NoError(s.users.UpdateStatus(s.ctx, user.ID, domain.UserVerified, &at))

	got, err := s.users.ByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(domain.UserVerified, got.Status)
	s.Require().NotNil(got.VerifiedAt)
	s.True(got.VerifiedAt.Equal(at))
}

func (s *PostgresStoreSuite) TestDocumentStatusWithBootstrapReviewer() {
	user := s.newUser(100)
	s.Require().NoError(s.users.Create(s.ctx, user))

	doc := &domain.Document{
		UserID:   user.ID,
		Type:     domain.DocPassport,
		FilePath: "/uploads/100_passport_ref.jpg",
		Status:   domain.DocumentPending,
	}
	s.Require().NoError(s.docs.Create(s.ctx, doc))

	// Reviewer id 0 means an admin configured by id without a user row; the
	// foreign key column must stay NULL.
	s.Require().NoError(s.docs.SetStatus(s.ctx, doc.ID, domain.DocumentApproved, 0, "ок", time.Now()))

	got, err := s.docs.ByID(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(domain.DocumentApproved, got.Status)
	s.Nil(got.VerifiedBy)
	s.Equal("ок", got.AdminComment)
}

func (s *PostgresStoreSuite) TestTxRollbackDiscardsWrites() {
	abort := errors.New("abort")
	err := s.txr.RunInTx(s.ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, s.newUser(100)); err != nil {
			return err
		}
		return abort
	})
	s.ErrorIs(err, abort)

	_, err = s.users.ByTelegramID(s.ctx, 100)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
