package services

import (
	"context"
	"errors"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// AccountUpdate carries the fields of a partial account update. Nil fields
// keep their current value.
type AccountUpdate struct {
	Name   *string
	Type   *string
	Active *bool
}

type AccountService struct {
	*deps
}

func (s *AccountService) List(ctx context.Context, includeInactive bool) ([]core.Account, error) {
	return within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) ([]core.Account, error) {
		return repos.Accounts().List(ctx, includeInactive)
	})
}

// Create adds an account; an existing (name, type) pair is a conflict.
func (s *AccountService) Create(ctx context.Context, name, accType string) (core.Account, error) {
	if strings.TrimSpace(accType) == "" {
		accType = core.DefaultAccountType
	}
	return within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) (core.Account, error) {
		existing, err := repos.Accounts().GetByNameType(ctx, name, accType)
		if err != nil {
			return core.Account{}, err
		}
		if existing != nil {
			return core.Account{}, core.ErrAccountAlreadyExists
		}
		acc, err := repos.Accounts().Create(ctx, name, accType)
		if errors.Is(err, ports.ErrUniqueViolation) {
			return core.Account{}, core.ErrAccountAlreadyExists
		}
		return acc, err
	})
}

func (s *AccountService) Update(ctx context.Context, id int64, upd AccountUpdate) (core.Account, error) {
	return within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) (core.Account, error) {
		acc, err := repos.Accounts().Get(ctx, id)
		if err != nil {
			return core.Account{}, err
		}
		if acc == nil {
			return core.Account{}, core.ErrAccountNotFound
		}

		next := *acc
		if upd.Name != nil {
			next.Name = *upd.Name
		}
		if upd.Type != nil {
			next.Type = *upd.Type
		}
		if upd.Active != nil {
			next.Active = *upd.Active
		}

		if next.Name != acc.Name || next.Type != acc.Type {
			other, err := repos.Accounts().GetByNameType(ctx, next.Name, next.Type)
			if err != nil {
				return core.Account{}, err
			}
			if other != nil && other.ID != id {
				return core.Account{}, core.ErrAccountAlreadyExists
			}
		}

		if err := repos.Accounts().Update(ctx, next); err != nil {
			if errors.Is(err, ports.ErrUniqueViolation) {
				return core.Account{}, core.ErrAccountAlreadyExists
			}
			return core.Account{}, err
		}
		return next, nil
	})
}

// Deactivate soft-deletes the account.
func (s *AccountService) Deactivate(ctx context.Context, id int64) error {
	return s.uow.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		acc, err := repos.Accounts().Get(ctx, id)
		if err != nil {
			return err
		}
		if acc == nil {
			return core.ErrAccountNotFound
		}
		acc.Active = false
		return repos.Accounts().Update(ctx, *acc)
	})
}
