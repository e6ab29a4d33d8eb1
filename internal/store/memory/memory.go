package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/controlboxthe-coder/THE-BOX/internal/core"
)

// Store keeps per-identity snapshots in process memory. It backs tests and
// the default backend, and doubles as the ephemeral session store.
type Store struct {
	mu        sync.Mutex
	snapshots map[string]core.Snapshot
	session   *core.User
	now       func() time.Time
}

func New() *Store {
	return &Store{
		snapshots: make(map[string]core.Snapshot),
		now:       time.Now,
	}
}

// NewWithClock is for tests that need deterministic UpdatedAt stamps.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

// Save overwrites the snapshot for email. Empty email is a no-op.
func (s *Store) Save(_ context.Context, email string, snap core.Snapshot) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	snap = snap.Clone()
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = s.now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[email] = snap
	return nil
}

// Load returns a deep copy so callers never alias the stored snapshot.
func (s *Store) Load(_ context.Context, email string) (core.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[strings.TrimSpace(email)]
	if !ok {
		return core.Snapshot{}, false, nil
	}
	return snap.Clone(), true, nil
}

func (s *Store) SaveSession(_ context.Context, user core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user
	s.session = &u
	return nil
}

func (s *Store) LoadSession(_ context.Context) (core.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return core.User{}, false, nil
	}
	return *s.session, true, nil
}

func (s *Store) ClearSession(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}
