//go:build integration

package registration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"velorent/internal/domain"
	"velorent/pkg/platform/sentinel"
	"velorent/pkg/testutil/containers"
)

type RedisStagingSuite struct {
	suite.Suite
	ctx   context.Context
	redis *containers.RedisContainer
	store *RedisStaging
}

func TestRedisStagingSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStagingSuite))
}

func (s *RedisStagingSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
	s.store = NewRedisStaging(s.redis.Client)
}

func (s *RedisStagingSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisStagingSuite) TestSlicesAccumulateIntoOneRegistration() {
	const id int64 = 42

	_, err := s.store.Get(s.ctx, id)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.SetLanguage(s.ctx, id, "ru"))
	s.Require().NoError(s.store.SetPersonalData(s.ctx, id, PersonalData{FullName: "Иван Петров", Phone: "+79001234567", Username: "ivan"}))
	s.Require().NoError(s.store.SetDocumentRef(s.ctx, id, domain.DocPassport, "file-1"))

	complete, err := s.store.IsComplete(s.ctx, id)
	s.Require().NoError(err)
	s.False(complete)

	s.Require().NoError(s.store.SetDocumentRef(s.ctx, id, domain.DocSelfie, "file-2"))

	staged, err := s.store.Get(s.ctx, id)
	s.Require().NoError(err)
	s.True(staged.IsComplete())
	s.Equal("ru", staged.Language)
	s.Equal("Иван Петров", staged.Personal.FullName)
	s.Equal("file-1", staged.Documents[domain.DocPassport])
	s.Equal("file-2", staged.Documents[domain.DocSelfie])
}

func (s *RedisStagingSuite) TestDocumentRefOverwriteKeepsSiblings() {
	const id int64 = 42

	s.Require().NoError(s.store.SetDocumentRef(s.ctx, id, domain.DocPassport, "file-1"))
	s.Require().NoError(s.store.SetDocumentRef(s.ctx, id, domain.DocPassport, "file-2"))
	s.Require().NoError(s.store.SetDocumentRef(s.ctx, id, domain.DocSelfie, "file-3"))

	staged, err := s.store.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("file-2", staged.Documents[domain.DocPassport])
	s.Equal("file-3", staged.Documents[domain.DocSelfie])
}

func (s *RedisStagingSuite) TestStateRoundTrip() {
	const id int64 = 42

	state, err := s.store.State(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(StepNone, state.Step)

	s.Require().NoError(s.store.SetState(s.ctx, id, FlowState{Step: StepAwaitingPrimary, ChosenDocument: domain.DocDriverLicense}))

	state, err = s.store.State(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(StepAwaitingPrimary, state.Step)
	s.Equal(domain.DocDriverLicense, state.ChosenDocument)
}

func (s *RedisStagingSuite) TestClearRemovesEverySlice() {
	const id int64 = 42

	s.Require().NoError(s.store.SetLanguage(s.ctx, id, "ru"))
	s.Require().NoError(s.store.SetState(s.ctx, id, FlowState{Step: StepEnteringName}))
	s.Require().NoError(s.store.SetDocumentRef(s.ctx, id, domain.DocSelfie, "file-1"))

	s.Require().NoError(s.store.Clear(s.ctx, id))

	_, err := s.store.Get(s.ctx, id)
	s.ErrorIs(err, sentinel.ErrNotFound)

	state, err := s.store.State(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(StepNone, state.Step)
}

func (s *RedisStagingSuite) TestEveryKeyCarriesTTL() {
	const id int64 = 42

	s.Require().NoError(s.store.SetLanguage(s.ctx, id, "ru"))
	s.Require().NoError(s.store.SetPersonalData(s.ctx, id, PersonalData{FullName: "Иван"}))
	s.Require().NoError(s.store.SetDocumentRef(s.ctx, id, domain.DocPassport, "file-1"))
	s.Require().NoError(s.store.SetState(s.ctx, id, FlowState{Step: StepEnteringPhone}))

	for _, suffix := range []string{"language", "data", "documents", "state"} {
		ttl, err := s.redis.Client.TTL(s.ctx, stagingKey(id, suffix)).Result()
		s.Require().NoError(err)
		s.Greater(ttl, time.Duration(0), "key %s has no expiry", suffix)
		s.LessOrEqual(ttl, StagingTTL)
	}
}

func (s *RedisStagingSuite) TestExtendTTLRefreshesExpiry() {
	const id int64 = 42

	s.Require().NoError(s.store.SetLanguage(s.ctx, id, "ru"))
	s.Require().NoError(s.redis.Client.Expire(s.ctx, stagingKey(id, "language"), time.Minute).Err())

	s.Require().NoError(s.store.ExtendTTL(s.ctx, id))

	ttl, err := s.redis.Client.TTL(s.ctx, stagingKey(id, "language")).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Minute)
}
