package core

import "sort"

// CategoryAmount is one row of the expense-by-category breakdown.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// Totals carries the dashboard headline numbers. Balance is always
// Income - Expense in exact cents.
type Totals struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Balance Money `json:"balance"`
}

// breakdownLimit caps the category breakdown to the largest groups.
const breakdownLimit = 6

// recentLimit caps the recent-activity view.
const recentLimit = 5

// Summarize derives the headline totals from a transaction sequence.
// A transaction's sign comes from its type only; amounts are accumulated
// as stored.
func Summarize(txs []Transaction) Totals {
	var income, expense int64
	for _, tx := range txs {
		if tx.Type == Income {
			income += tx.Amount.Cents
		} else {
			expense += tx.Amount.Cents
		}
	}
	return Totals{
		Income:  Money{Cents: income},
		Expense: Money{Cents: expense},
		Balance: Money{Cents: income - expense},
	}
}

// CategoryBreakdown groups expense transactions by category, sums per group,
// sorts non-increasing by summed amount and keeps the top groups. Ties keep
// the order categories were first encountered in the grouping pass. An empty
// input yields a nil slice; callers render that as "no data".
func CategoryBreakdown(txs []Transaction) []CategoryAmount {
	sums := make(map[string]int64)
	var order []string
	for _, tx := range txs {
		if tx.Type != Expense {
			continue
		}
		if _, seen := sums[tx.Category]; !seen {
			order = append(order, tx.Category)
		}
		sums[tx.Category] += tx.Amount.Cents
	}
	if len(order) == 0 {
		return nil
	}

	rows := make([]CategoryAmount, 0, len(order))
	for _, name := range order {
		rows = append(rows, CategoryAmount{Name: name, Amount: Money{Cents: sums[name]}})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Amount.Cents > rows[j].Amount.Cents
	})
	if len(rows) > breakdownLimit {
		rows = rows[:breakdownLimit]
	}
	return rows
}

// RecentActivity returns the newest transactions by calendar date,
// at most five. Entries sharing a date keep their relative input order.
// The input slice is never modified.
func RecentActivity(txs []Transaction) []Transaction {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[j].Date.Before(sorted[i].Date)
	})
	if len(sorted) > recentLimit {
		sorted = sorted[:recentLimit]
	}
	return sorted
}
