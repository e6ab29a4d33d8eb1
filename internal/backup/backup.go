// Package backup encodes and decodes user-facing backup files. The file
// shape is the durable snapshot shape, so an exported file restores
// byte-for-byte into the store.
package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/controlboxthe-coder/THE-BOX/internal/core"
)

// ValidationError describes why a backup payload was rejected. The whole
// payload is rejected on the first offending field; no partial restore
// happens from an invalid file.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid backup field %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Export serializes the snapshot to an indented backup file.
func Export(snap core.Snapshot, now time.Time) ([]byte, error) {
	snap.UpdatedAt = now.UTC()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

type rawBackup struct {
	Transactions *[]core.Transaction   `json:"transactions"`
	Categories   *[]string             `json:"categories"`
	Recurring    *[]core.RecurringItem `json:"recurring"`
	LicenseKey   *string               `json:"licenseKey"`
	UpdatedAt    *time.Time            `json:"updatedAt"`
}

// Parse decodes a backup file into a partial snapshot patch. Absent fields
// stay nil so the caller's current values survive the restore. Unknown
// fields and records that fail validation reject the payload with a
// *ValidationError.
func Parse(data []byte) (core.SnapshotPatch, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var raw rawBackup
	if err := dec.Decode(&raw); err != nil {
		return core.SnapshotPatch{}, &ValidationError{Field: "payload", Err: err}
	}

	if raw.Transactions != nil {
		for i, tx := range *raw.Transactions {
			if err := tx.Validate(); err != nil {
				return core.SnapshotPatch{}, &ValidationError{
					Field: fmt.Sprintf("transactions[%d]", i),
					Err:   err,
				}
			}
		}
	}
	if raw.Categories != nil {
		for i, name := range *raw.Categories {
			if name == "" {
				return core.SnapshotPatch{}, &ValidationError{
					Field: fmt.Sprintf("categories[%d]", i),
					Err:   core.ErrEmptyCategory,
				}
			}
		}
	}
	if raw.Recurring != nil {
		for i, item := range *raw.Recurring {
			if err := item.Validate(); err != nil {
				return core.SnapshotPatch{}, &ValidationError{
					Field: fmt.Sprintf("recurring[%d]", i),
					Err:   err,
				}
			}
		}
	}

	return core.SnapshotPatch{
		Transactions: raw.Transactions,
		Categories:   raw.Categories,
		Recurring:    raw.Recurring,
		LicenseKey:   raw.LicenseKey,
	}, nil
}
