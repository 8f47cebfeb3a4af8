package registration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"velorent/internal/audit"
	"velorent/internal/domain"
	"velorent/internal/identity"
	"velorent/internal/transfer"
	"velorent/pkg/platform/sentinel"
)

// diskGateway writes real files so the tests can observe cleanup after a
// failed commit. failOn makes the named document type fail its fetch.
type diskGateway struct {
	dir    string
	failOn domain.DocumentType
}

func (g *diskGateway) FetchAndStore(_ context.Context, ref string, ownerID int64, docType domain.DocumentType) (string, error) {
	if docType == g.failOn {
		return "", &transfer.Error{Op: "fetch", Ref: ref, Err: errors.New("transport timeout")}
	}
	path := filepath.Join(g.dir, fmt.Sprintf("%d_%s_%s.jpg", ownerID, docType, ref))
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		return "", &transfer.Error{Op: "write", Ref: ref, Err: err}
	}
	return path, nil
}

type capturingPublisher struct {
	events []audit.Event
}

func (p *capturingPublisher) Emit(_ context.Context, e audit.Event) error {
	p.events = append(p.events, e)
	return nil
}

type CommitterSuite struct {
	suite.Suite
	ctx     context.Context
	users   *identity.MemoryUserStore
	docs    *identity.MemoryDocumentStore
	gateway *diskGateway
	pub     *capturingPublisher
	dir     string
}

func TestCommitterSuite(t *testing.T) {
	suite.Run(t, new(CommitterSuite))
}

func (s *CommitterSuite) SetupTest() {
	s.ctx = context.Background()
	s.users = identity.NewMemoryUserStore()
	s.docs = identity.NewMemoryDocumentStore()
	s.dir = s.T().TempDir()
	s.gateway = &diskGateway{dir: s.dir}
	s.pub = &capturingPublisher{}
}

func (s *CommitterSuite) committer() *Committer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	txr := identity.NewMemoryTxRunner(s.users, s.docs)
	return NewCommitter(txr, s.users, s.docs, s.gateway, s.pub, logger, nil)
}

func (s *CommitterSuite) staged() *StagedRegistration {
	return &StagedRegistration{
		Language: "ru",
		Personal: PersonalData{FullName: "Иван Петров", Phone: "+79001234567", Username: "ivan"},
		Documents: map[domain.DocumentType]string{
			domain.DocPassport: "ref-passport",
			domain.DocSelfie:   "ref-selfie",
		},
	}
}

func (s *CommitterSuite) filesOnDisk() int {
	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	return len(entries)
}

func (s *CommitterSuite) TestCommitHappyPath() {
	user, err := s.committer().Commit(s.ctx, 100, s.staged())
	s.Require().NoError(err)
	s.Require().NotNil(user)

	s.Equal(int64(100), user.TelegramID)
	s.Equal(domain.UserPending, user.Status)
	s.Equal(domain.RoleClient, user.Role)
	s.Equal("ru", user.Language)

	docs, err := s.docs.ListByUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Len(docs, 2)
	for _, doc := range docs {
		s.Equal(domain.DocumentPending, doc.Status)
		s.Equal(user.ID, doc.UserID)
		s.FileExists(doc.FilePath)
	}
	s.Equal(2, s.filesOnDisk())

	s.Require().Len(s.pub.events, 1)
	s.Equal(audit.ActionUserRegistered, s.pub.events[0].Action)
}

func (s *CommitterSuite) TestCommitDefaultsLanguage() {
	staged := s.staged()
	staged.Language = ""

	user, err := s.committer().Commit(s.ctx, 100, staged)
	s.Require().NoError(err)
	s.Equal("ru", user.Language)
}

func (s *CommitterSuite) TestCommitWhenAlreadyRegistered() {
	existing := &domain.User{TelegramID: 100, FullName: "Первый", Role: domain.RoleClient, Status: domain.UserPending}
	s.Require().NoError(s.users.Create(s.ctx, existing))

	user, err := s.committer().Commit(s.ctx, 100, s.staged())
	s.Nil(user)
	s.ErrorIs(err, sentinel.ErrAlreadyRegistered)

	// Terminal, not wrapped in the retryable commit error.
	var commitErr *CommitError
	s.False(errors.As(err, &commitErr))

	docs, err := s.docs.ListByUser(s.ctx, existing.ID)
	s.Require().NoError(err)
	s.Empty(docs)
	s.Zero(s.filesOnDisk())
}

func (s *CommitterSuite) TestTransferFailureRollsBackAndCleansFiles() {
	s.gateway.failOn = domain.DocSelfie

	user, err := s.committer().Commit(s.ctx, 100, s.staged())
	s.Nil(user)
	s.Require().Error(err)

	var commitErr *CommitError
	s.Require().ErrorAs(err, &commitErr)
	var transferErr *transfer.Error
	s.ErrorAs(err, &transferErr)

	// The passport was fetched before the selfie failed; its file must be gone.
	s.Zero(s.filesOnDisk())

	_, err = s.users.ByTelegramID(s.ctx, 100)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *CommitterSuite) TestDocumentInsertFailureRollsBackEverything() {
	s.docs.FailOnCreate = 2

	user, err := s.committer().Commit(s.ctx, 100, s.staged())
	s.Nil(user)

	var commitErr *CommitError
	s.Require().ErrorAs(err, &commitErr)

	s.Zero(s.filesOnDisk())
	_, err = s.users.ByTelegramID(s.ctx, 100)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().Len(s.pub.events, 1)
	s.Equal(audit.ActionRegistrationError, s.pub.events[0].Action)
}

func (s *CommitterSuite) TestRetryAfterTransientFailureSucceeds() {
	s.docs.FailOnCreate = 1
	committer := s.committer()

	_, err := committer.Commit(s.ctx, 100, s.staged())
	s.Require().Error(err)

	// Same staged data, next attempt. No re-upload happened in between.
	user, err := committer.Commit(s.ctx, 100, s.staged())
	s.Require().NoError(err)
	s.Require().NotNil(user)

	docs, err := s.docs.ListByUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Len(docs, 2)
}
