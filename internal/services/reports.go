package services

import (
	"context"
	"sort"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

type ReportService struct {
	*deps
}

// MonthlySummary parses month and builds its report.
func (s *ReportService) MonthlySummary(ctx context.Context, month string) (core.MonthlySummary, error) {
	m, err := core.ParseMonth(month)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	return s.Summary(ctx, m)
}

// Summary aggregates income, expenses and the planned vs realized table
// for m. Budgets and realized expenses are joined on category id.
func (s *ReportService) Summary(ctx context.Context, m core.Month) (core.MonthlySummary, error) {
	return within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) (core.MonthlySummary, error) {
		first, last := m.Range()
		entries, err := repos.Transactions().Ledger(ctx, first, last)
		if err != nil {
			return core.MonthlySummary{}, err
		}

		budgets, err := repos.Budgets().ListByMonth(ctx, m.String())
		if err != nil {
			return core.MonthlySummary{}, err
		}
		planned := make(map[int64]core.Money, len(budgets))
		for _, b := range budgets {
			planned[b.CategoryID] = b.AmountPlanned
		}

		names, err := repos.Categories().Names(ctx, categoryIDs(entries, planned))
		if err != nil {
			return core.MonthlySummary{}, err
		}

		return core.BuildMonthlySummary(m, entries, planned, names), nil
	})
}

func categoryIDs(entries []core.LedgerEntry, planned map[int64]core.Money) []int64 {
	seen := make(map[int64]struct{}, len(planned))
	for id := range planned {
		seen[id] = struct{}{}
	}
	for _, e := range entries {
		if e.Kind == core.TxExpense && e.CategoryID != nil {
			seen[*e.CategoryID] = struct{}{}
		}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
