package google

import (
	"fmt"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// Row labels of an exported tab.
const (
	labelMonth    = "Mês"
	labelIncome   = "Receitas"
	labelExpense  = "Despesas"
	labelBalance  = "Saldo"
	labelCategory = "ID"
)

var categoryHeader = []any{labelCategory, "Categoria", "Planejado", "Realizado", "Desvio"}

// summaryRows lays a summary out as totals, a blank row, then one row per
// category under a header.
func summaryRows(s core.MonthlySummary) [][]any {
	rows := [][]any{
		{labelMonth, s.Month},
		{labelIncome, s.IncomeTotal.String()},
		{labelExpense, s.ExpenseTotal.String()},
		{labelBalance, s.Balance.String()},
		{},
		categoryHeader,
	}
	for _, l := range s.ByCategory {
		rows = append(rows, []any{
			strconv.FormatInt(l.CategoryID, 10),
			l.CategoryName,
			l.Planned.String(),
			l.Realized.String(),
			l.Deviation.String(),
		})
	}
	return rows
}

// parseSummary reverses summaryRows. Rows are matched by label so blank or
// reordered total rows are tolerated.
func parseSummary(values [][]any) (core.MonthlySummary, error) {
	var (
		s          core.MonthlySummary
		inCategory bool
		err        error
	)
	s.ByCategory = []core.CategoryLine{}

	for i, raw := range values {
		row := toStrings(raw)
		if len(row) == 0 || row[0] == "" {
			continue
		}
		if inCategory {
			line, perr := parseCategoryRow(row)
			if perr != nil {
				return core.MonthlySummary{}, fmt.Errorf("row %d: %w", i+1, perr)
			}
			s.ByCategory = append(s.ByCategory, line)
			continue
		}

		switch row[0] {
		case labelMonth:
			s.Month = safeGet(row, 1)
		case labelIncome:
			s.IncomeTotal, err = core.ParseMoney(safeGet(row, 1))
		case labelExpense:
			s.ExpenseTotal, err = core.ParseMoney(safeGet(row, 1))
		case labelBalance:
			s.Balance, err = core.ParseMoney(safeGet(row, 1))
		case labelCategory:
			inCategory = true
		}
		if err != nil {
			return core.MonthlySummary{}, fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	if s.Month == "" {
		return core.MonthlySummary{}, fmt.Errorf("unexpected summary layout: missing %q row", labelMonth)
	}
	return s, nil
}

func parseCategoryRow(row []string) (core.CategoryLine, error) {
	id, err := strconv.ParseInt(safeGet(row, 0), 10, 64)
	if err != nil {
		return core.CategoryLine{}, fmt.Errorf("category id %q: %w", safeGet(row, 0), err)
	}
	line := core.CategoryLine{CategoryID: id, CategoryName: safeGet(row, 1)}
	for idx, dst := range []*core.Money{&line.Planned, &line.Realized, &line.Deviation} {
		m, err := core.ParseMoney(safeGet(row, idx+2))
		if err != nil {
			return core.CategoryLine{}, err
		}
		*dst = m
	}
	return line, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
