package core

import "time"

// Snapshot is the durable per-identity record: everything saved under a
// user's partition key, and also the exact shape of a backup file. The two
// must stay identical so a downloaded backup restores cleanly.
type Snapshot struct {
	Transactions []Transaction   `json:"transactions"`
	Categories   []string        `json:"categories"`
	Recurring    []RecurringItem `json:"recurring"`
	LicenseKey   string          `json:"licenseKey"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Clone returns a deep copy so callers can hand out snapshots without
// sharing backing arrays with mutable state.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Transactions != nil {
		out.Transactions = append([]Transaction(nil), s.Transactions...)
	}
	if s.Categories != nil {
		out.Categories = append([]string(nil), s.Categories...)
	}
	if s.Recurring != nil {
		out.Recurring = append([]RecurringItem(nil), s.Recurring...)
		for i, item := range out.Recurring {
			if item.LastProcessed != nil {
				d := *item.LastProcessed
				out.Recurring[i].LastProcessed = &d
			}
		}
	}
	return out
}
