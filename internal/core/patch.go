package core

// SnapshotPatch is a partial update to a snapshot. Nil fields are left
// untouched when the patch is applied; non-nil fields replace the current
// value wholesale.
type SnapshotPatch struct {
	Transactions *[]Transaction   `json:"transactions,omitempty"`
	Categories   *[]string        `json:"categories,omitempty"`
	Recurring    *[]RecurringItem `json:"recurring,omitempty"`
	LicenseKey   *string          `json:"licenseKey,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p SnapshotPatch) IsEmpty() bool {
	return p.Transactions == nil && p.Categories == nil && p.Recurring == nil && p.LicenseKey == nil
}
