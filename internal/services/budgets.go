package services

import (
	"context"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// BudgetInput is a validated budget upsert request.
type BudgetInput struct {
	Month         core.Month
	CategoryID    int64
	AmountPlanned core.Money
}

type BudgetService struct {
	*deps
}

// ListByMonth parses month and returns its budgets ordered by id.
func (s *BudgetService) ListByMonth(ctx context.Context, month string) ([]core.Budget, error) {
	m, err := core.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	return within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) ([]core.Budget, error) {
		return repos.Budgets().ListByMonth(ctx, m.String())
	})
}

// Upsert creates or replaces the planned amount for (month, category).
// Only active EXPENSE categories can be budgeted.
func (s *BudgetService) Upsert(ctx context.Context, in BudgetInput) (core.Budget, error) {
	b, err := within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) (core.Budget, error) {
		cat, err := repos.Categories().Get(ctx, in.CategoryID)
		if err != nil {
			return core.Budget{}, err
		}
		if err := core.CheckBudgetCategory(cat); err != nil {
			return core.Budget{}, err
		}
		return repos.Budgets().Upsert(ctx, core.Budget{
			Month:         in.Month.String(),
			CategoryID:    in.CategoryID,
			AmountPlanned: in.AmountPlanned,
		})
	})
	if err != nil {
		return core.Budget{}, err
	}

	s.events.emit(ctx, core.NewEvent(core.EventBudgetUpserted, b.Month, strconv.FormatInt(b.ID, 10)))
	return b, nil
}

func (s *BudgetService) Delete(ctx context.Context, id int64) error {
	b, err := within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) (core.Budget, error) {
		b, err := repos.Budgets().Get(ctx, id)
		if err != nil {
			return core.Budget{}, err
		}
		if b == nil {
			return core.Budget{}, core.ErrBudgetNotFound
		}
		n, err := repos.Budgets().Delete(ctx, id)
		if err != nil {
			return core.Budget{}, err
		}
		if n == 0 {
			return core.Budget{}, core.ErrBudgetNotFound
		}
		return *b, nil
	})
	if err != nil {
		return err
	}

	s.events.emit(ctx, core.NewEvent(core.EventBudgetDeleted, b.Month, strconv.FormatInt(id, 10)))
	return nil
}
