package cleanup

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type staticLister struct {
	paths []string
}

func (l *staticLister) ListPaths(_ context.Context) ([]string, error) {
	return l.paths, nil
}

type SweeperSuite struct {
	suite.Suite
	ctx     context.Context
	dir     string
	lister  *staticLister
	sweeper *Sweeper
	now     time.Time
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = s.T().TempDir()
	s.lister = &staticLister{}
	s.now = time.Now()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.sweeper = NewSweeper(s.dir, s.lister, time.Hour, logger)
	s.sweeper.now = func() time.Time { return s.now }
}

// writeFile creates a file with the given age relative to the fixed clock.
func (s *SweeperSuite) writeFile(name string, age time.Duration) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte("jpeg"), 0o644))
	mtime := s.now.Add(-age)
	s.Require().NoError(os.Chtimes(path, mtime, mtime))
	return path
}

func (s *SweeperSuite) TestRemovesOnlyOldOrphans() {
	orphan := s.writeFile("1_passport_old.jpg", MinAge+time.Hour)
	fresh := s.writeFile("2_selfie_fresh.jpg", time.Hour)
	referenced := s.writeFile("3_passport_kept.jpg", MinAge+time.Hour)
	s.lister.paths = []string{referenced}

	removed, err := s.sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, removed)

	s.NoFileExists(orphan)
	s.FileExists(fresh)
	s.FileExists(referenced)
}

func (s *SweeperSuite) TestRelativeReferencePathsMatch() {
	kept := s.writeFile("1_passport_a.jpg", MinAge+time.Hour)

	rel, err := filepath.Rel(mustGetwd(s.T()), kept)
	if err != nil {
		s.T().Skip("upload dir not reachable from working directory")
	}
	s.lister.paths = []string{rel}

	removed, err := s.sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(removed)
	s.FileExists(kept)
}

func (s *SweeperSuite) TestSkipsDirectories() {
	s.Require().NoError(os.Mkdir(filepath.Join(s.dir, "nested"), 0o755))

	removed, err := s.sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(removed)
	s.DirExists(filepath.Join(s.dir, "nested"))
}

func (s *SweeperSuite) TestMissingDirectoryIsNotAnError() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sweeper := NewSweeper(filepath.Join(s.dir, "does-not-exist"), s.lister, time.Hour, logger)

	removed, err := sweeper.Sweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(removed)
}

func mustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	return wd
}
