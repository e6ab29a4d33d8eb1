package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/controlboxthe-coder/THE-BOX/internal/core"

	_ "modernc.org/sqlite"
)

// Repository stores one snapshot row per identity partition key.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, now: time.Now}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save implements store.SnapshotStore. The previous row for the key is
// overwritten unconditionally; a fresh save is also marked pending for the
// cloud mirror sweep.
func (r *Repository) Save(ctx context.Context, email string, snap core.Snapshot) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = r.now().UTC()
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (email, payload, updated_at, sync_state)
		VALUES (?, ?, ?, 0)
		ON CONFLICT(email) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			sync_state = 0`,
		email, string(payload), snap.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot saved",
		"email", email,
		"transactions", len(snap.Transactions),
		"updated_at", snap.UpdatedAt)

	return nil
}

// Load implements store.SnapshotStore. A missing row and a row whose payload
// no longer parses are both reported as absent; corruption never reaches the
// session layer as an error.
func (r *Repository) Load(ctx context.Context, email string) (core.Snapshot, bool, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE email = ?`,
		strings.TrimSpace(email)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, false, nil
	}
	if err != nil {
		return core.Snapshot{}, false, fmt.Errorf("select snapshot: %w", err)
	}

	var snap core.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		slog.WarnContext(ctx, "Stored snapshot is corrupt, treating as absent",
			"email", email,
			"error", err)
		return core.Snapshot{}, false, nil
	}
	return snap, true, nil
}

// PendingSync returns identities whose latest snapshot has not been mirrored
// yet, oldest first.
func (r *Repository) PendingSync(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT email FROM snapshots
		WHERE sync_state = 0
		ORDER BY updated_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending snapshots: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan pending snapshot: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// MarkSynced records that the identity's snapshot reached the mirror.
func (r *Repository) MarkSynced(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE snapshots SET sync_state = 1 WHERE email = ?`, email); err != nil {
		return fmt.Errorf("mark snapshot synced: %w", err)
	}
	return nil
}

// MarkSyncError flags a snapshot whose mirror attempt failed so the periodic
// sweep retries it.
func (r *Repository) MarkSyncError(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE snapshots SET sync_state = 0 WHERE email = ?`, email); err != nil {
		return fmt.Errorf("mark snapshot sync error: %w", err)
	}
	return nil
}
