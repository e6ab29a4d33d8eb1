// Package store defines the persistence ports for per-identity snapshots and
// the ephemeral session pointer.
package store

import (
	"context"

	"github.com/controlboxthe-coder/THE-BOX/internal/core"
)

type (
	// SnapshotStore persists one snapshot per identity partition key (the
	// user's email). Writes are last-write-wins; there is no merging and no
	// versioning.
	SnapshotStore interface {
		// Save overwrites the snapshot stored for email, stamping UpdatedAt
		// when the caller has not. Saving with an empty email is a silent
		// no-op.
		Save(ctx context.Context, email string, snap core.Snapshot) error
		// Load returns the stored snapshot and true, or false when no
		// snapshot exists for email. A stored payload that fails to parse
		// is reported as absent, never as an error.
		Load(ctx context.Context, email string) (core.Snapshot, bool, error)
	}

	// SessionStore keeps the single "who is logged in" pointer. It lives for
	// one process run only and is independent of the durable snapshots.
	SessionStore interface {
		SaveSession(ctx context.Context, user core.User) error
		LoadSession(ctx context.Context) (core.User, bool, error)
		ClearSession(ctx context.Context) error
	}
)
