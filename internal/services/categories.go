package services

import (
	"context"
	"errors"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// CategoryUpdate carries the fields of a partial category update.
type CategoryUpdate struct {
	Name   *string
	Kind   *core.CategoryKind
	Group  *core.CategoryGroup
	Active *bool
}

type CategoryService struct {
	*deps
}

func (s *CategoryService) List(ctx context.Context, includeInactive bool) ([]core.Category, error) {
	return within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) ([]core.Category, error) {
		return repos.Categories().List(ctx, includeInactive)
	})
}

// Create adds an active category. Names are unique across all categories.
func (s *CategoryService) Create(ctx context.Context, name string, kind core.CategoryKind, group core.CategoryGroup) (core.Category, error) {
	return within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) (core.Category, error) {
		existing, err := repos.Categories().GetByName(ctx, name)
		if err != nil {
			return core.Category{}, err
		}
		if existing != nil {
			return core.Category{}, core.ErrCategoryAlreadyExists
		}
		cat, err := repos.Categories().Create(ctx, core.Category{Name: name, Kind: kind, Group: group, Active: true})
		if errors.Is(err, ports.ErrUniqueViolation) {
			return core.Category{}, core.ErrCategoryAlreadyExists
		}
		return cat, err
	})
}

func (s *CategoryService) Update(ctx context.Context, id int64, upd CategoryUpdate) (core.Category, error) {
	return within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) (core.Category, error) {
		cat, err := repos.Categories().Get(ctx, id)
		if err != nil {
			return core.Category{}, err
		}
		if cat == nil {
			return core.Category{}, core.ErrCategoryNotFound
		}

		next := *cat
		if upd.Name != nil {
			other, err := repos.Categories().GetByName(ctx, *upd.Name)
			if err != nil {
				return core.Category{}, err
			}
			if other != nil && other.ID != id {
				return core.Category{}, core.ErrCategoryAlreadyExists
			}
			next.Name = *upd.Name
		}
		if upd.Kind != nil {
			next.Kind = *upd.Kind
		}
		if upd.Group != nil {
			next.Group = *upd.Group
		}
		if upd.Active != nil {
			next.Active = *upd.Active
		}

		if err := repos.Categories().Update(ctx, next); err != nil {
			if errors.Is(err, ports.ErrUniqueViolation) {
				return core.Category{}, core.ErrCategoryAlreadyExists
			}
			return core.Category{}, err
		}
		return next, nil
	})
}

// Deactivate soft-deletes the category. Its transactions and budgets stay.
func (s *CategoryService) Deactivate(ctx context.Context, id int64) error {
	return s.uow.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		cat, err := repos.Categories().Get(ctx, id)
		if err != nil {
			return err
		}
		if cat == nil {
			return core.ErrCategoryNotFound
		}
		cat.Active = false
		return repos.Categories().Update(ctx, *cat)
	})
}
