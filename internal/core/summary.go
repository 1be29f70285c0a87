package core

import "sort"

// UnknownCategoryName is shown for categories that no longer resolve.
const UnknownCategoryName = "N/A"

// CategoryLine compares planned and realized spend for one category.
// Deviation is realized minus planned: negative means under budget.
type CategoryLine struct {
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name"`
	Planned      Money  `json:"planned"`
	Realized     Money  `json:"realized"`
	Deviation    Money  `json:"deviation"`
}

// MonthlySummary is the report for one month. ExpenseTotal is absolute.
type MonthlySummary struct {
	Month        string         `json:"month"`
	IncomeTotal  Money          `json:"income_total"`
	ExpenseTotal Money          `json:"expense_total"`
	Balance      Money          `json:"balance"`
	ByCategory   []CategoryLine `json:"by_category"`
}

// LedgerEntry is the slice of a transaction the report needs.
type LedgerEntry struct {
	Kind       TxKind
	CategoryID *int64
	Amount     Money
}

// BuildMonthlySummary aggregates the month's ledger entries against its
// budgets. names resolves category ids, inactive categories included.
func BuildMonthlySummary(month Month, entries []LedgerEntry, budgets map[int64]Money, names map[int64]string) MonthlySummary {
	var income, expenseSigned []Money
	realized := make(map[int64][]Money)

	for _, e := range entries {
		switch e.Kind {
		case TxIncome:
			income = append(income, e.Amount)
		case TxExpense:
			expenseSigned = append(expenseSigned, e.Amount)
			if e.CategoryID != nil {
				realized[*e.CategoryID] = append(realized[*e.CategoryID], e.Amount)
			}
		}
	}

	ids := make([]int64, 0, len(budgets)+len(realized))
	seen := make(map[int64]bool, len(budgets)+len(realized))
	for id := range budgets {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range realized {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	lines := make([]CategoryLine, 0, len(ids))
	for _, id := range ids {
		planned := budgets[id]
		spent := SumMoney(realized[id]...).Abs()
		name, ok := names[id]
		if !ok {
			name = UnknownCategoryName
		}
		lines = append(lines, CategoryLine{
			CategoryID:   id,
			CategoryName: name,
			Planned:      NewMoney(planned.Decimal()),
			Realized:     spent,
			Deviation:    spent.Sub(planned),
		})
	}

	incomeTotal := SumMoney(income...)
	expenseTotal := SumMoney(expenseSigned...)
	return MonthlySummary{
		Month:        month.String(),
		IncomeTotal:  incomeTotal,
		ExpenseTotal: expenseTotal.Abs(),
		Balance:      incomeTotal.Add(expenseTotal),
		ByCategory:   lines,
	}
}

// Equal compares two summaries by value, ignoring decimal representation.
func (s MonthlySummary) Equal(o MonthlySummary) bool {
	if s.Month != o.Month || len(s.ByCategory) != len(o.ByCategory) {
		return false
	}
	if !s.IncomeTotal.Equal(o.IncomeTotal) || !s.ExpenseTotal.Equal(o.ExpenseTotal) || !s.Balance.Equal(o.Balance) {
		return false
	}
	for i, l := range s.ByCategory {
		r := o.ByCategory[i]
		if l.CategoryID != r.CategoryID || l.CategoryName != r.CategoryName ||
			!l.Planned.Equal(r.Planned) || !l.Realized.Equal(r.Realized) || !l.Deviation.Equal(r.Deviation) {
			return false
		}
	}
	return true
}
