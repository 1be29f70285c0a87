package google

import (
	"testing"

	"fintrack/internal/core"
)

func TestSummaryRowsRoundTrip(t *testing.T) {
	rows := summaryRows(sampleSummary())
	if len(rows) != 8 {
		t.Fatalf("rows = %d, want 8", len(rows))
	}
	if rows[2][1] != "910.00" {
		t.Errorf("expense cell = %v", rows[2][1])
	}

	got, err := parseSummary(rows)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.IncomeTotal.String() != "5800.00" || got.ByCategory[0].Planned.String() != "600.00" {
		t.Errorf("unexpected summary: %+v", got)
	}
}

func TestParseSummaryEmptyCategories(t *testing.T) {
	got, err := parseSummary(summaryRows(core.MonthlySummary{
		Month:        "2026-02",
		IncomeTotal:  core.MustMoney("0"),
		ExpenseTotal: core.MustMoney("0"),
		Balance:      core.MustMoney("0"),
	}))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.ByCategory == nil || len(got.ByCategory) != 0 {
		t.Errorf("expected empty, non-nil categories: %#v", got.ByCategory)
	}
	if got.Balance.String() != "0.00" {
		t.Errorf("balance = %s", got.Balance)
	}
}

func TestParseSummaryErrors(t *testing.T) {
	tests := []struct {
		name   string
		values [][]any
	}{
		{"missing month", [][]any{{labelIncome, "1.00"}}},
		{"bad amount", [][]any{{labelMonth, "2026-01"}, {labelIncome, "abc"}}},
		{"bad category id", [][]any{{labelMonth, "2026-01"}, categoryHeader, {"x", "Lazer", "1", "1", "0"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseSummary(tt.values); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
