package session

import (
	"github.com/controlboxthe-coder/THE-BOX/internal/core"
)

// Phase is the lifecycle stage of a session.
type Phase string

const (
	Unauthenticated Phase = "unauthenticated"
	Loading         Phase = "loading"
	Authenticated   Phase = "authenticated"
)

// ApplicationState is the single mutable root of a session. The controller
// owns the only instance; everything handed out by State() is a deep copy.
type ApplicationState struct {
	Phase        Phase
	User         *core.User
	Transactions []core.Transaction
	Categories   []string
	Recurring    []core.RecurringItem
	LicenseKey   string
}

// IsAuthenticated is true iff a user identity is present.
func (s ApplicationState) IsAuthenticated() bool {
	return s.User != nil
}

// IsPro reports whether the session unlocked the PRO tier.
func (s ApplicationState) IsPro() bool {
	return s.LicenseKey == core.LicenseKeyPro
}

func emptyState() ApplicationState {
	return ApplicationState{
		Phase:      Unauthenticated,
		Categories: core.DefaultCategories(),
	}
}

func (s ApplicationState) clone() ApplicationState {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	out.Transactions = append([]core.Transaction(nil), s.Transactions...)
	out.Categories = append([]string(nil), s.Categories...)
	out.Recurring = append([]core.RecurringItem(nil), s.Recurring...)
	return out
}

func (s ApplicationState) snapshot() core.Snapshot {
	return core.Snapshot{
		Transactions: append([]core.Transaction(nil), s.Transactions...),
		Categories:   append([]string(nil), s.Categories...),
		Recurring:    append([]core.RecurringItem(nil), s.Recurring...),
		LicenseKey:   s.LicenseKey,
	}
}
