package registration

import (
	"context"
	"sync"
	"time"

	"velorent/internal/domain"
	"velorent/pkg/platform/sentinel"
)

type stagedEntry struct {
	language  string
	hasLang   bool
	personal  PersonalData
	hasData   bool
	documents map[domain.DocumentType]string
	state     FlowState
	expiresAt time.Time
}

// MemoryStaging is the in-memory StagingStore twin used by unit tests. Unlike
// Redis it expires the whole record at once; per-slice expiry never diverges
// in practice because every write refreshes all slices' TTL anyway.
type MemoryStaging struct {
	mu      sync.Mutex
	entries map[int64]*stagedEntry

	// Now is swappable so tests can advance time past the TTL.
	Now func() time.Time
}

func NewMemoryStaging() *MemoryStaging {
	return &MemoryStaging{
		entries: make(map[int64]*stagedEntry),
		Now:     time.Now,
	}
}

func (s *MemoryStaging) entry(telegramID int64) *stagedEntry {
	e, ok := s.entries[telegramID]
	if !ok || s.Now().After(e.expiresAt) {
		e = &stagedEntry{documents: make(map[domain.DocumentType]string)}
		s.entries[telegramID] = e
	}
	e.expiresAt = s.Now().Add(StagingTTL)
	return e
}

func (s *MemoryStaging) live(telegramID int64) (*stagedEntry, bool) {
	e, ok := s.entries[telegramID]
	if !ok || s.Now().After(e.expiresAt) {
		return nil, false
	}
	return e, true
}

func (s *MemoryStaging) SetLanguage(_ context.Context, telegramID int64, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(telegramID)
	e.language = language
	e.hasLang = true
	return nil
}

func (s *MemoryStaging) SetPersonalData(_ context.Context, telegramID int64, data PersonalData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(telegramID)
	e.personal = data
	e.hasData = true
	return nil
}

func (s *MemoryStaging) SetDocumentRef(_ context.Context, telegramID int64, docType domain.DocumentType, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(telegramID).documents[docType] = ref
	return nil
}

func (s *MemoryStaging) Get(_ context.Context, telegramID int64) (*StagedRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(telegramID)
	if !ok || (!e.hasLang && !e.hasData && len(e.documents) == 0) {
		return nil, sentinel.ErrNotFound
	}
	docs := make(map[domain.DocumentType]string, len(e.documents))
	for k, v := range e.documents {
		docs[k] = v
	}
	return &StagedRegistration{Language: e.language, Personal: e.personal, Documents: docs}, nil
}

func (s *MemoryStaging) IsComplete(ctx context.Context, telegramID int64) (bool, error) {
	staged, err := s.Get(ctx, telegramID)
	if err != nil {
		return false, nil
	}
	return staged.IsComplete(), nil
}

func (s *MemoryStaging) MissingFields(ctx context.Context, telegramID int64) ([]string, error) {
	staged, err := s.Get(ctx, telegramID)
	if err != nil {
		return (&StagedRegistration{}).MissingFields(), nil
	}
	return staged.MissingFields(), nil
}

func (s *MemoryStaging) SetState(_ context.Context, telegramID int64, state FlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(telegramID).state = state
	return nil
}

func (s *MemoryStaging) State(_ context.Context, telegramID int64) (FlowState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(telegramID)
	if !ok {
		return FlowState{}, nil
	}
	return e.state, nil
}

func (s *MemoryStaging) Clear(_ context.Context, telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, telegramID)
	return nil
}

func (s *MemoryStaging) ExtendTTL(_ context.Context, telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.live(telegramID); ok {
		e.expiresAt = s.Now().Add(StagingTTL)
	}
	return nil
}
