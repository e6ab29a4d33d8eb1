// Package memory is an in-process mirror used in tests and the memory
// backend, holding the last written snapshot per identity.
package memory

import (
	"context"
	"sync"

	"github.com/controlboxthe-coder/THE-BOX/internal/core"
	ports "github.com/controlboxthe-coder/THE-BOX/internal/sheets"
)

type Mirror struct {
	mu        sync.Mutex
	snapshots map[string]core.Snapshot
	writes    int
}

var _ ports.SnapshotMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{snapshots: make(map[string]core.Snapshot)}
}

func (m *Mirror) WriteSnapshot(_ context.Context, email string, snap core.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[email] = snap.Clone()
	m.writes++
	return nil
}

// Snapshot returns the last mirrored snapshot for the identity.
func (m *Mirror) Snapshot(email string) (core.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[email]
	return snap, ok
}

// Writes returns the number of WriteSnapshot calls.
func (m *Mirror) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
