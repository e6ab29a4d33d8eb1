package core

import "testing"

func tx(id string, typ TransactionType, category string, cents int64, date Date) Transaction {
	return Transaction{
		ID:          id,
		Type:        typ,
		Category:    category,
		Description: id,
		Amount:      Money{Cents: cents},
		Date:        date,
	}
}

func TestSummarizeBalanceIdentity(t *testing.T) {
	seqs := [][]Transaction{
		nil,
		{tx("a", Income, "Salário", 100000, NewDate(2024, 1, 1))},
		{
			tx("a", Income, "Salário", 100000, NewDate(2024, 1, 1)),
			tx("b", Expense, "Alimentação", 30000, NewDate(2024, 1, 2)),
			tx("c", Expense, "Alimentação", 10000, NewDate(2024, 1, 3)),
			tx("d", Expense, "Transporte", 999, NewDate(2024, 1, 3)),
		},
	}
	for i, txs := range seqs {
		got := Summarize(txs)
		if got.Income.Cents-got.Expense.Cents != got.Balance.Cents {
			t.Fatalf("case %d: balance identity broken: %+v", i, got)
		}
	}
}

func TestSummarizeScenario(t *testing.T) {
	txs := []Transaction{
		tx("a", Income, "Salário", 100000, NewDate(2024, 1, 1)),
		tx("b", Expense, "Food", 30000, NewDate(2024, 1, 2)),
		tx("c", Expense, "Food", 10000, NewDate(2024, 1, 3)),
	}
	got := Summarize(txs)
	if got.Income.Cents != 100000 || got.Expense.Cents != 40000 || got.Balance.Cents != 60000 {
		t.Fatalf("unexpected totals: %+v", got)
	}

	breakdown := CategoryBreakdown(txs)
	if len(breakdown) != 1 || breakdown[0].Name != "Food" || breakdown[0].Amount.Cents != 40000 {
		t.Fatalf("unexpected breakdown: %+v", breakdown)
	}
}

func TestCategoryBreakdownTopSixSorted(t *testing.T) {
	var txs []Transaction
	cats := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8"}
	for i, c := range cats {
		txs = append(txs, tx(c, Expense, c, int64((i+1)*100), NewDate(2024, 1, 1)))
	}
	// Income must never appear in the breakdown.
	txs = append(txs, tx("inc", Income, "Salário", 99999, NewDate(2024, 1, 1)))

	rows := CategoryBreakdown(txs)
	if len(rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].Amount.Cents < rows[i].Amount.Cents {
			t.Fatalf("breakdown not sorted non-increasing: %+v", rows)
		}
	}
	if rows[0].Name != "c8" || rows[5].Name != "c3" {
		t.Fatalf("unexpected top/bottom rows: %+v", rows)
	}
}

func TestCategoryBreakdownTieKeepsFirstEncountered(t *testing.T) {
	txs := []Transaction{
		tx("a", Expense, "Lazer", 500, NewDate(2024, 1, 1)),
		tx("b", Expense, "Moradia", 500, NewDate(2024, 1, 2)),
	}
	rows := CategoryBreakdown(txs)
	if len(rows) != 2 || rows[0].Name != "Lazer" || rows[1].Name != "Moradia" {
		t.Fatalf("tie must keep first-encountered order: %+v", rows)
	}
}

func TestCategoryBreakdownEmpty(t *testing.T) {
	if rows := CategoryBreakdown(nil); rows != nil {
		t.Fatalf("expected nil breakdown for empty input, got %+v", rows)
	}
	onlyIncome := []Transaction{tx("a", Income, "Salário", 100, NewDate(2024, 1, 1))}
	if rows := CategoryBreakdown(onlyIncome); rows != nil {
		t.Fatalf("expected nil breakdown for income-only input, got %+v", rows)
	}
}

func TestRecentActivity(t *testing.T) {
	txs := []Transaction{
		tx("old", Expense, "c", 100, NewDate(2024, 1, 1)),
		tx("newest", Expense, "c", 100, NewDate(2024, 3, 1)),
		tx("tie1", Expense, "c", 100, NewDate(2024, 2, 1)),
		tx("tie2", Expense, "c", 100, NewDate(2024, 2, 1)),
	}
	got := RecentActivity(txs)
	if len(got) != 4 {
		t.Fatalf("expected min(5, len) entries, got %d", len(got))
	}
	order := []string{"newest", "tie1", "tie2", "old"}
	for i, want := range order {
		if got[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s (full: %+v)", i, want, got[i].ID, got)
		}
	}
	// Input order untouched.
	if txs[0].ID != "old" {
		t.Fatal("RecentActivity must not reorder its input")
	}
}

func TestRecentActivityCapsAtFive(t *testing.T) {
	var txs []Transaction
	for day := 1; day <= 9; day++ {
		txs = append(txs, tx(string(rune('a'+day)), Expense, "c", 100, NewDate(2024, 1, day)))
	}
	got := RecentActivity(txs)
	if len(got) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(got))
	}
	if got[0].Date.String() != "2024-01-09" {
		t.Fatalf("expected newest first, got %s", got[0].Date)
	}
}
