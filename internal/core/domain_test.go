package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, 1, 2)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-01-02"` {
		t.Fatalf("expected plain date string, got %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %v != %v", back, d)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		ID:          "t1",
		Type:        Expense,
		Category:    "Alimentação",
		Description: "mercado",
		Amount:      Money{Cents: 12345},
		Date:        NewDate(2024, 3, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Type: "transfer", Category: "c", Description: "a", Amount: Money{Cents: 1}, Date: NewDate(2024, 1, 1)},
		{Type: Income, Category: "c", Description: "", Amount: Money{Cents: 1}, Date: NewDate(2024, 1, 1)},
		{Type: Income, Category: "", Description: "a", Amount: Money{Cents: 1}, Date: NewDate(2024, 1, 1)},
		{Type: Income, Category: "c", Description: "a", Amount: Money{Cents: 0}, Date: NewDate(2024, 1, 1)},
		{Type: Income, Category: "c", Description: "a", Amount: Money{Cents: 1}},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestRecurringItemValidate(t *testing.T) {
	good := RecurringItem{
		ID:          "r1",
		Description: "aluguel",
		Amount:      Money{Cents: 90000},
		Day:         5,
		Type:        Expense,
		Category:    "Moradia",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, day := range []int{0, 32, -1} {
		bad := good
		bad.Day = day
		if err := bad.Validate(); err != ErrInvalidDay {
			t.Fatalf("day %d expected ErrInvalidDay, got %v", day, err)
		}
	}
}

func TestDefaultCategoriesIncludeFallback(t *testing.T) {
	found := false
	for _, c := range DefaultCategories() {
		if c == FallbackCategory {
			found = true
		}
	}
	if !found {
		t.Fatalf("default categories must contain %q", FallbackCategory)
	}
}

func TestSnapshotClone(t *testing.T) {
	processed := NewDate(2026, 8, 1)
	snap := Snapshot{
		Transactions: []Transaction{{ID: "t1"}},
		Categories:   []string{"A"},
		Recurring:    []RecurringItem{{ID: "r1", Day: 5, LastProcessed: &processed}},
		LicenseKey:   LicenseKeyPro,
	}
	clone := snap.Clone()
	clone.Transactions[0].ID = "changed"
	clone.Categories[0] = "changed"
	if snap.Transactions[0].ID != "t1" || snap.Categories[0] != "A" {
		t.Fatal("clone shares backing arrays with the original")
	}
	if clone.Recurring[0].LastProcessed == snap.Recurring[0].LastProcessed {
		t.Fatal("clone shares LastProcessed pointer with the original")
	}
	*clone.Recurring[0].LastProcessed = NewDate(2026, 9, 1)
	if !snap.Recurring[0].LastProcessed.Equal(processed.Time) {
		t.Fatal("mutating the clone's LastProcessed changed the original")
	}
}
