package registration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"velorent/internal/domain"
	"velorent/internal/identity"
	"velorent/pkg/platform/sentinel"
)

// scriptedCommitter lets flow tests control the commit outcome and inspect
// what was committed.
type scriptedCommitter struct {
	users     *identity.MemoryUserStore
	err       error
	committed *StagedRegistration
	calls     int
}

func (c *scriptedCommitter) Commit(ctx context.Context, telegramID int64, staged *StagedRegistration) (*domain.User, error) {
	c.calls++
	c.committed = staged
	if c.err != nil {
		return nil, c.err
	}
	user := &domain.User{
		TelegramID: telegramID,
		FullName:   staged.Personal.FullName,
		Phone:      staged.Personal.Phone,
		Language:   staged.Language,
		Role:       domain.RoleClient,
		Status:     domain.UserPending,
	}
	if err := c.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

type FlowSuite struct {
	suite.Suite
	ctx       context.Context
	staging   *MemoryStaging
	users     *identity.MemoryUserStore
	committer *scriptedCommitter
	flow      *Flow
	sender    Sender
}

func TestFlowSuite(t *testing.T) {
	suite.Run(t, new(FlowSuite))
}

var reservedLabels = []string{"🚴 Арендовать", "📋 Мои аренды", "ℹ️ Помощь"}

func (s *FlowSuite) SetupTest() {
	s.ctx = context.Background()
	s.staging = NewMemoryStaging()
	s.users = identity.NewMemoryUserStore()
	s.committer = &scriptedCommitter{users: s.users}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.flow = NewFlow(s.staging, s.users, s.committer, reservedLabels, logger, nil)
	s.sender = Sender{TelegramID: 100, Username: "ivan"}
}

func (s *FlowSuite) promptKeys(o Outcome) []string {
	keys := make([]string, 0, len(o.Prompts))
	for _, p := range o.Prompts {
		keys = append(keys, p.Key)
	}
	return keys
}

func (s *FlowSuite) mustStep(step Step) {
	state, err := s.staging.State(s.ctx, s.sender.TelegramID)
	s.Require().NoError(err)
	s.Equal(step, state.Step)
}

// runToSelfie walks the conversation up to the point where only the selfie is
// missing.
func (s *FlowSuite) runToSelfie() {
	_, err := s.flow.Start(s.ctx, s.sender)
	s.Require().NoError(err)

	_, err = s.flow.HandleLanguage(s.ctx, s.sender, "ru")
	s.Require().NoError(err)

	_, err = s.flow.HandleText(s.ctx, s.sender, "Иван Петров")
	s.Require().NoError(err)

	_, err = s.flow.HandleText(s.ctx, s.sender, "+79001234567")
	s.Require().NoError(err)

	_, err = s.flow.HandleDocumentChoice(s.ctx, s.sender, domain.DocPassport)
	s.Require().NoError(err)

	outcome, err := s.flow.HandlePhoto(s.ctx, s.sender, "ref-passport")
	s.Require().NoError(err)
	s.Contains(s.promptKeys(outcome), "registration.send_selfie")
	s.mustStep(StepAwaitingSelfie)
}

func (s *FlowSuite) TestFullConversationCommits() {
	s.runToSelfie()

	outcome, err := s.flow.HandlePhoto(s.ctx, s.sender, "ref-selfie")
	s.Require().NoError(err)

	s.Require().NotNil(outcome.User)
	s.Equal("Иван Петров", outcome.User.FullName)
	s.Contains(s.promptKeys(outcome), "registration.submitted")

	s.Equal(1, s.committer.calls)
	s.True(s.committer.committed.IsComplete())
	s.Equal("ru", s.committer.committed.Language)

	// Success clears staging.
	_, err = s.staging.Get(s.ctx, s.sender.TelegramID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *FlowSuite) TestStartForRegisteredUser() {
	s.Require().NoError(s.users.Create(s.ctx, &domain.User{
		TelegramID: 100, FullName: "Иван Петров", Language: "ru",
		Role: domain.RoleClient, Status: domain.UserVerified,
	}))
	s.Require().NoError(s.staging.SetLanguage(s.ctx, 100, "tg"))

	outcome, err := s.flow.Start(s.ctx, s.sender)
	s.Require().NoError(err)
	s.Require().NotNil(outcome.User)
	s.Equal([]string{"start.welcome_back"}, s.promptKeys(outcome))

	// Stale staged leftovers are dropped for durable users.
	_, err = s.staging.Get(s.ctx, 100)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *FlowSuite) TestNameValidation() {
	_, err := s.flow.Start(s.ctx, s.sender)
	s.Require().NoError(err)
	_, err = s.flow.HandleLanguage(s.ctx, s.sender, "ru")
	s.Require().NoError(err)

	outcome, err := s.flow.HandleText(s.ctx, s.sender, "  И  ")
	s.Require().NoError(err)
	s.Equal([]string{"registration.name_invalid"}, s.promptKeys(outcome))
	s.mustStep(StepEnteringName)

	// A menu label is never a name.
	outcome, err = s.flow.HandleText(s.ctx, s.sender, "🚴 Арендовать")
	s.Require().NoError(err)
	s.Equal([]string{"registration.name_invalid"}, s.promptKeys(outcome))
	s.mustStep(StepEnteringName)

	outcome, err = s.flow.HandleText(s.ctx, s.sender, "Иван Петров")
	s.Require().NoError(err)
	s.Equal([]string{"registration.share_phone"}, s.promptKeys(outcome))
	s.mustStep(StepEnteringPhone)
}

func (s *FlowSuite) TestPhoneValidation() {
	_, err := s.flow.Start(s.ctx, s.sender)
	s.Require().NoError(err)
	_, err = s.flow.HandleLanguage(s.ctx, s.sender, "ru")
	s.Require().NoError(err)
	_, err = s.flow.HandleText(s.ctx, s.sender, "Иван Петров")
	s.Require().NoError(err)

	outcome, err := s.flow.HandleText(s.ctx, s.sender, "12345")
	s.Require().NoError(err)
	s.Equal([]string{"registration.phone_invalid"}, s.promptKeys(outcome))
	s.mustStep(StepEnteringPhone)

	outcome, err = s.flow.HandleText(s.ctx, s.sender, "+79001234567")
	s.Require().NoError(err)
	s.Equal([]string{"registration.choose_document"}, s.promptKeys(outcome))
	s.mustStep(StepChoosingDocument)
}

func (s *FlowSuite) TestDuplicatePrimaryDocumentRefused() {
	s.runToSelfie()

	// Force the choosing step with a primary already staged.
	s.Require().NoError(s.staging.SetState(s.ctx, 100, FlowState{Step: StepChoosingDocument}))

	outcome, err := s.flow.HandleDocumentChoice(s.ctx, s.sender, domain.DocDriverLicense)
	s.Require().NoError(err)
	s.Equal([]string{"registration.document_already_staged"}, s.promptKeys(outcome))
	s.mustStep(StepChoosingDocument)
}

func (s *FlowSuite) TestResumeAtEarliestMissingField() {
	s.Require().NoError(s.staging.SetLanguage(s.ctx, 100, "ru"))
	s.Require().NoError(s.staging.SetPersonalData(s.ctx, 100, PersonalData{FullName: "Иван Петров", Phone: "+79001234567"}))

	outcome, err := s.flow.Start(s.ctx, s.sender)
	s.Require().NoError(err)
	s.Equal([]string{"registration.resume", "registration.choose_document"}, s.promptKeys(outcome))
	s.mustStep(StepChoosingDocument)

	// With a primary staged too, resume asks for the selfie.
	s.Require().NoError(s.staging.SetDocumentRef(s.ctx, 100, domain.DocPassport, "ref-1"))
	outcome, err = s.flow.Start(s.ctx, s.sender)
	s.Require().NoError(err)
	s.Equal([]string{"registration.resume", "registration.send_selfie"}, s.promptKeys(outcome))
	s.mustStep(StepAwaitingSelfie)
}

func (s *FlowSuite) TestCommitFailureKeepsStagedData() {
	s.committer.err = &CommitError{Err: errors.New("db down")}
	s.runToSelfie()

	outcome, err := s.flow.HandlePhoto(s.ctx, s.sender, "ref-selfie")
	s.Require().NoError(err)
	s.Nil(outcome.User)
	s.Equal([]string{"registration.retry"}, s.promptKeys(outcome))

	// Everything staged survives for the retry.
	staged, err := s.staging.Get(s.ctx, 100)
	s.Require().NoError(err)
	s.True(staged.IsComplete())

	// The retry goes straight through once the store recovers.
	s.committer.err = nil
	outcome, err = s.flow.HandlePhoto(s.ctx, s.sender, "ref-selfie")
	s.Require().NoError(err)
	s.NotNil(outcome.User)
}

func (s *FlowSuite) TestLostRegistrationRace() {
	s.runToSelfie()

	// Another path registered this identity between staging and commit.
	s.Require().NoError(s.users.Create(s.ctx, &domain.User{
		TelegramID: 100, FullName: "Иван Петров", Language: "ru",
		Role: domain.RoleClient, Status: domain.UserPending,
	}))
	s.committer.err = sentinel.ErrAlreadyRegistered

	outcome, err := s.flow.HandlePhoto(s.ctx, s.sender, "ref-selfie")
	s.Require().NoError(err)
	s.Require().NotNil(outcome.User)
	s.Equal([]string{"start.welcome_back"}, s.promptKeys(outcome))

	_, err = s.staging.Get(s.ctx, 100)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *FlowSuite) TestUnexpectedPhotoIgnored() {
	_, err := s.flow.Start(s.ctx, s.sender)
	s.Require().NoError(err)

	outcome, err := s.flow.HandlePhoto(s.ctx, s.sender, "ref-1")
	s.Require().NoError(err)
	s.Nil(outcome.User)
	s.Equal([]string{"registration.unexpected_photo"}, s.promptKeys(outcome))
}

func (s *FlowSuite) TestUnsupportedLanguageReprompts() {
	_, err := s.flow.Start(s.ctx, s.sender)
	s.Require().NoError(err)

	outcome, err := s.flow.HandleLanguage(s.ctx, s.sender, "en")
	s.Require().NoError(err)
	s.Equal([]string{"registration.choose_language"}, s.promptKeys(outcome))
	s.mustStep(StepChoosingLanguage)
}
