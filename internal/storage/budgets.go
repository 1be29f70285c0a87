package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

type budgetRepo struct {
	c conn
}

const budgetColumns = `id, month, category_id, CAST(amount_planned AS TEXT)`

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var b core.Budget
	err := row.Scan(&b.ID, &b.Month, &b.CategoryID, &b.AmountPlanned)
	return b, err
}

func (r budgetRepo) ListByMonth(ctx context.Context, month string) ([]core.Budget, error) {
	rows, err := r.c.query(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE month = ? ORDER BY id`, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets for %s: %w", month, err)
	}
	defer rows.Close()

	budgets := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r budgetRepo) get(ctx context.Context, where string, args ...any) (*core.Budget, error) {
	b, err := scanBudget(r.c.queryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r budgetRepo) Get(ctx context.Context, id int64) (*core.Budget, error) {
	b, err := r.get(ctx, `id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get budget %d: %w", id, err)
	}
	return b, nil
}

func (r budgetRepo) GetByMonthCategory(ctx context.Context, month string, categoryID int64) (*core.Budget, error) {
	b, err := r.get(ctx, `month = ? AND category_id = ?`, month, categoryID)
	if err != nil {
		return nil, fmt.Errorf("get budget %s/%d: %w", month, categoryID, err)
	}
	return b, nil
}

func (r budgetRepo) Upsert(ctx context.Context, b core.Budget) (core.Budget, error) {
	id, err := r.c.insertReturningID(ctx,
		`INSERT INTO budgets (month, category_id, amount_planned) VALUES (?, ?, ?)
		 ON CONFLICT (month, category_id) DO UPDATE SET amount_planned = excluded.amount_planned
		 RETURNING id`,
		b.Month, b.CategoryID, b.AmountPlanned.String())
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	b.ID = id
	return b, nil
}

func (r budgetRepo) Delete(ctx context.Context, id int64) (int64, error) {
	n, err := r.c.affected(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete budget %d: %w", id, err)
	}
	return n, nil
}

func (r budgetRepo) DeleteAll(ctx context.Context) (int64, error) {
	n, err := r.c.affected(ctx, `DELETE FROM budgets`)
	if err != nil {
		return 0, fmt.Errorf("delete budgets: %w", err)
	}
	return n, nil
}
