package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/ports"
	"fintrack/internal/services"
)

// racingAccounts passes every lookup and then loses the write to a
// concurrent request, as the store reports it.
type racingAccounts struct {
	ports.AccountRepository
	existing core.Account
}

func (r *racingAccounts) Get(_ context.Context, id int64) (*core.Account, error) {
	if id != r.existing.ID {
		return nil, nil
	}
	acc := r.existing
	return &acc, nil
}

func (r *racingAccounts) GetByNameType(context.Context, string, string) (*core.Account, error) {
	return nil, nil
}

func (r *racingAccounts) Create(context.Context, string, string) (core.Account, error) {
	return core.Account{}, ports.ErrUniqueViolation
}

func (r *racingAccounts) Update(context.Context, core.Account) error {
	return ports.ErrUniqueViolation
}

type racingCategories struct {
	ports.CategoryRepository
	existing core.Category
}

func (r *racingCategories) Get(_ context.Context, id int64) (*core.Category, error) {
	if id != r.existing.ID {
		return nil, nil
	}
	cat := r.existing
	return &cat, nil
}

func (r *racingCategories) GetByName(context.Context, string) (*core.Category, error) {
	return nil, nil
}

func (r *racingCategories) Create(context.Context, core.Category) (core.Category, error) {
	return core.Category{}, ports.ErrUniqueViolation
}

func (r *racingCategories) Update(context.Context, core.Category) error {
	return ports.ErrUniqueViolation
}

type fakeRepos struct {
	ports.Repositories
	accounts   ports.AccountRepository
	categories ports.CategoryRepository
}

func (f fakeRepos) Accounts() ports.AccountRepository     { return f.accounts }
func (f fakeRepos) Categories() ports.CategoryRepository { return f.categories }

// fakeUnitOfWork runs fn on the fake repositories and reports fn's error
// the way the real store does after rolling back.
type fakeUnitOfWork struct {
	repos ports.Repositories
}

func (u fakeUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	return fn(ctx, u.repos)
}

func requireConflict(t *testing.T, err error, want *core.Error) {
	t.Helper()
	require.ErrorIs(t, err, want)
	de, ok := core.AsError(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	assert.Equal(t, core.KindConflict, de.Kind)
}

func TestUniqueViolationAfterPassingPreCheck(t *testing.T) {
	ctx := context.Background()
	app := services.NewApp(fakeUnitOfWork{repos: fakeRepos{
		accounts:   &racingAccounts{existing: core.Account{ID: 1, Name: "Banco", Type: "BANK", Active: true}},
		categories: &racingCategories{existing: core.Category{ID: 2, Name: "Mercado", Kind: core.CategoryExpense, Group: core.GroupEssential, Active: true}},
	}})

	t.Run("account create", func(t *testing.T) {
		_, err := app.Accounts.Create(ctx, "Banco", "BANK")
		requireConflict(t, err, core.ErrAccountAlreadyExists)
	})
	t.Run("account update", func(t *testing.T) {
		_, err := app.Accounts.Update(ctx, 1, services.AccountUpdate{Name: ptr("Carteira")})
		requireConflict(t, err, core.ErrAccountAlreadyExists)
	})
	t.Run("category create", func(t *testing.T) {
		_, err := app.Categories.Create(ctx, "Mercado", core.CategoryExpense, core.GroupEssential)
		requireConflict(t, err, core.ErrCategoryAlreadyExists)
	})
	t.Run("category update", func(t *testing.T) {
		_, err := app.Categories.Update(ctx, 2, services.CategoryUpdate{Name: ptr("Feira")})
		requireConflict(t, err, core.ErrCategoryAlreadyExists)
	})
}
