package sheets

import (
	"context"

	"github.com/controlboxthe-coder/THE-BOX/internal/core"
)

// Ports for outbound adapters.
type (
	// SnapshotMirror rewrites the cloud mirror rows for one identity. The
	// mirror is a read-only copy for dashboards and recovery; the durable
	// store stays authoritative.
	SnapshotMirror interface {
		WriteSnapshot(ctx context.Context, email string, snap core.Snapshot) error
	}
)
