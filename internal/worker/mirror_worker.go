package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/controlboxthe-coder/THE-BOX/internal/amqp"
	"github.com/controlboxthe-coder/THE-BOX/internal/core"
	"github.com/controlboxthe-coder/THE-BOX/internal/sheets"
)

// SnapshotSource is the slice of the durable store the worker needs: load a
// snapshot and track its mirror state.
type SnapshotSource interface {
	Load(ctx context.Context, email string) (core.Snapshot, bool, error)
	PendingSync(ctx context.Context, limit int) ([]string, error)
	MarkSynced(ctx context.Context, email string) error
	MarkSyncError(ctx context.Context, email string) error
}

// MirrorWorker mirrors saved snapshots into the cloud spreadsheet. Messages
// drive the common path; the pending sweep recovers snapshots whose message
// was lost or whose mirror write failed.
type MirrorWorker struct {
	source    SnapshotSource
	mirror    sheets.SnapshotMirror
	batchSize int
}

func NewMirrorWorker(source SnapshotSource, mirror sheets.SnapshotMirror, batchSize int) *MirrorWorker {
	return &MirrorWorker{
		source:    source,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single snapshot sync message from AMQP
func (w *MirrorWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SnapshotSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"email", msg.Email,
		"updated_at", msg.UpdatedAt)

	return w.mirrorSnapshot(ctx, msg.Email)
}

// ProcessPendingSnapshots mirrors any snapshots that haven't been synced yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *MirrorWorker) ProcessPendingSnapshots(ctx context.Context) error {
	pending, err := w.source.PendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending snapshots: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending snapshots", "count", len(pending))

	for _, email := range pending {
		if err := w.mirrorSnapshot(ctx, email); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror snapshot", "email", email, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck mirrors pending snapshots at worker startup to recover
// from missed messages or worker downtime.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.source.PendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending snapshots for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending snapshots found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending snapshots on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, email := range pending {
		if err := w.mirrorSnapshot(ctx, email); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror snapshot during startup",
				"email", email, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *MirrorWorker) mirrorSnapshot(ctx context.Context, email string) error {
	snap, found, err := w.source.Load(ctx, email)
	if err != nil {
		if markErr := w.source.MarkSyncError(ctx, email); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "email", email, "error", markErr)
		}
		return fmt.Errorf("load snapshot from storage: %w", err)
	}
	if !found {
		// The row vanished between the message and the load. Nothing to
		// mirror.
		slog.WarnContext(ctx, "Snapshot absent, skipping mirror", "email", email)
		return nil
	}

	if err := w.mirror.WriteSnapshot(ctx, email, snap); err != nil {
		if markErr := w.source.MarkSyncError(ctx, email); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "email", email, "error", markErr)
		}
		return fmt.Errorf("write snapshot to mirror: %w", err)
	}

	if err := w.source.MarkSynced(ctx, email); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "email", email, "error", err)
		// Don't return error here - the mirror write actually worked
	}

	slog.InfoContext(ctx, "Successfully mirrored snapshot",
		"email", email,
		"transactions", len(snap.Transactions),
		"updated_at", snap.UpdatedAt)

	return nil
}
