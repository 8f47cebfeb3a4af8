package identity

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"velorent/internal/domain"
	txcontext "velorent/pkg/platform/tx"
)

// SQLTxRunner wraps a function in one database transaction. The transaction is
// carried through context so the postgres stores join it transparently.
type SQLTxRunner struct {
	db *sql.DB
}

func NewSQLTxRunner(db *sql.DB) *SQLTxRunner {
	return &SQLTxRunner{db: db}
}

func (r *SQLTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// MemoryTxRunner emulates transactional semantics over the memory stores with
// a coarse lock plus snapshot/restore, so unit tests observe real rollback.
type MemoryTxRunner struct {
	mu    sync.Mutex
	users *MemoryUserStore
	docs  *MemoryDocumentStore
}

func NewMemoryTxRunner(users *MemoryUserStore, docs *MemoryDocumentStore) *MemoryTxRunner {
	return &MemoryTxRunner{users: users, docs: docs}
}

func (r *MemoryTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userSnap, userNext := r.users.snapshot()
	docSnap, docNext := r.docs.snapshot()

	if err := fn(ctx); err != nil {
		r.users.restore(userSnap, userNext)
		r.docs.restore(docSnap, docNext)
		return err
	}
	return nil
}

func (s *MemoryUserStore) snapshot() (map[int64]*domain.User, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := make(map[int64]*domain.User, len(s.users))
	for id, user := range s.users {
		copied := *user
		snap[id] = &copied
	}
	return snap, s.nextID
}

func (s *MemoryUserStore) restore(snap map[int64]*domain.User, nextID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap
	s.nextID = nextID
}

func (s *MemoryDocumentStore) snapshot() (map[int64]*domain.Document, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := make(map[int64]*domain.Document, len(s.docs))
	for id, doc := range s.docs {
		copied := *doc
		snap[id] = &copied
	}
	return snap, s.nextID
}

func (s *MemoryDocumentStore) restore(snap map[int64]*domain.Document, nextID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = snap
	s.nextID = nextID
}
