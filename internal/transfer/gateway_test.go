package transfer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"velorent/internal/domain"
)

type fakeFetcher struct {
	data    map[string][]byte
	err     error
	fetches int
}

func (f *fakeFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	f.fetches++
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.data[ref]
	if !ok {
		return nil, errors.New("unknown reference")
	}
	return data, nil
}

type GatewaySuite struct {
	suite.Suite
	ctx     context.Context
	dir     string
	fetcher *fakeFetcher
	gateway *Gateway
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = s.T().TempDir()
	s.fetcher = &fakeFetcher{data: map[string][]byte{"ref-1": []byte("jpeg bytes")}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.gateway = NewGateway(s.fetcher, s.dir, logger)
}

func (s *GatewaySuite) TestStoresUnderDeterministicName() {
	path, err := s.gateway.FetchAndStore(s.ctx, "ref-1", 7, domain.DocPassport)
	s.Require().NoError(err)

	s.True(filepath.IsAbs(path))
	s.Equal("7_passport_ref-1.jpg", filepath.Base(path))

	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	s.Equal([]byte("jpeg bytes"), data)
}

func (s *GatewaySuite) TestRetryOverwritesSameFile() {
	first, err := s.gateway.FetchAndStore(s.ctx, "ref-1", 7, domain.DocSelfie)
	s.Require().NoError(err)

	s.fetcher.data["ref-1"] = []byte("fresher bytes")
	second, err := s.gateway.FetchAndStore(s.ctx, "ref-1", 7, domain.DocSelfie)
	s.Require().NoError(err)

	s.Equal(first, second)
	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Len(entries, 1)

	data, err := os.ReadFile(second)
	s.Require().NoError(err)
	s.Equal([]byte("fresher bytes"), data)
}

func (s *GatewaySuite) TestFetchFailureLeavesNoFile() {
	s.fetcher.err = errors.New("transport timeout")

	_, err := s.gateway.FetchAndStore(s.ctx, "ref-1", 7, domain.DocPassport)
	s.Require().Error(err)

	var transferErr *Error
	s.Require().ErrorAs(err, &transferErr)
	s.Equal("fetch", transferErr.Op)
	s.Equal("ref-1", transferErr.Ref)
	s.ErrorIs(err, s.fetcher.err)

	entries, err := os.ReadDir(s.dir)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *GatewaySuite) TestCreatesMissingDirectory() {
	nested := filepath.Join(s.dir, "uploads", "documents")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := NewGateway(s.fetcher, nested, logger)

	path, err := gateway.FetchAndStore(s.ctx, "ref-1", 7, domain.DocPassport)
	s.Require().NoError(err)
	s.FileExists(path)
}
