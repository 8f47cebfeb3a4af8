package identity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"velorent/internal/domain"
	"velorent/pkg/platform/sentinel"
)

// MemoryUserStore keeps users in a map. It backs unit tests and mirrors the
// PostgreSQL implementation's error contract.
type MemoryUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[int64]*domain.User)}
}

func (s *MemoryUserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.TelegramID == user.TelegramID {
			return fmt.Errorf("user telegram_id=%d: %w", user.TelegramID, sentinel.ErrAlreadyRegistered)
		}
	}
	s.nextID++
	user.ID = s.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *MemoryUserStore) ByTelegramID(_ context.Context, telegramID int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.TelegramID == telegramID {
			copied := *user
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryUserStore) ByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemoryUserStore) ListByStatus(_ context.Context, status domain.UserStatus, role domain.UserRole) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.User
	for _, user := range s.users {
		if user.Status == status && user.Role == role {
			copied := *user
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryUserStore) UpdateStatus(_ context.Context, id int64, status domain.UserStatus, verifiedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	user.Status = status
	user.VerifiedAt = verifiedAt
	return nil
}

func (s *MemoryUserStore) UpdateLanguage(_ context.Context, telegramID int64, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.TelegramID == telegramID {
			user.Language = language
			return nil
		}
	}
	return sentinel.ErrNotFound
}

// MemoryDocumentStore keeps documents in a map for unit tests.
type MemoryDocumentStore struct {
	mu     sync.Mutex
	nextID int64
	docs   map[int64]*domain.Document

	// FailOnCreate makes the Nth Create call fail; commit atomicity tests use
	// it to interrupt the committer mid-flight. Zero disables it.
	FailOnCreate int
	creates      int
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[int64]*domain.Document)}
}

func (s *MemoryDocumentStore) Create(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.FailOnCreate > 0 && s.creates == s.FailOnCreate {
		return fmt.Errorf("document store: %w", sentinel.ErrUnavailable)
	}
	s.nextID++
	doc.ID = s.nextID
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now()
	}
	copied := *doc
	s.docs[doc.ID] = &copied
	return nil
}

func (s *MemoryDocumentStore) ByID(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (s *MemoryDocumentStore) ListByUser(_ context.Context, userID int64) ([]*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Document
	for _, doc := range s.docs {
		if doc.UserID == userID {
			copied := *doc
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryDocumentStore) SetStatus(_ context.Context, id int64, status domain.DocumentStatus, reviewerID int64, comment string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	doc.Status = status
	doc.VerifiedBy = &reviewerID
	doc.AdminComment = comment
	doc.VerifiedAt = &at
	return nil
}

func (s *MemoryDocumentStore) ListPaths(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var paths []string
	for _, doc := range s.docs {
		paths = append(paths, doc.FilePath)
	}
	return paths, nil
}
