// Package ports declares the capability interfaces the use-cases depend on.
// Storage adapters implement them; services only see these contracts.
package ports

import (
	"context"
	"errors"

	"fintrack/internal/core"
)

// ErrUniqueViolation is returned by repositories when a write collides
// with a uniqueness constraint.
var ErrUniqueViolation = errors.New("unique constraint violation")

type (
	AccountRepository interface {
		List(ctx context.Context, includeInactive bool) ([]core.Account, error)
		Get(ctx context.Context, id int64) (*core.Account, error)
		GetByNameType(ctx context.Context, name, accType string) (*core.Account, error)
		Create(ctx context.Context, name, accType string) (core.Account, error)
		Update(ctx context.Context, acc core.Account) error
		DeleteAll(ctx context.Context) (int64, error)
	}

	CategoryRepository interface {
		List(ctx context.Context, includeInactive bool) ([]core.Category, error)
		Get(ctx context.Context, id int64) (*core.Category, error)
		GetByName(ctx context.Context, name string) (*core.Category, error)
		Create(ctx context.Context, c core.Category) (core.Category, error)
		Update(ctx context.Context, c core.Category) error
		// Names resolves ids to names, inactive categories included.
		Names(ctx context.Context, ids []int64) (map[int64]string, error)
		DeleteAll(ctx context.Context) (int64, error)
	}

	// TransactionFilter narrows a transaction listing. Nil fields are ignored.
	TransactionFilter struct {
		From       *core.Date
		To         *core.Date
		AccountID  *int64
		CategoryID *int64
		Kind       *core.TxKind
	}

	TransactionRepository interface {
		List(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		Get(ctx context.Context, id int64) (*core.Transaction, error)
		Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// Delete removes one row and reports how many rows went away.
		Delete(ctx context.Context, id int64) (int64, error)
		// DeleteByPair removes every leg sharing pairID.
		DeleteByPair(ctx context.Context, pairID string) (int64, error)
		// Ledger returns INCOME and EXPENSE rows dated within [from, to].
		Ledger(ctx context.Context, from, to core.Date) ([]core.LedgerEntry, error)
		Count(ctx context.Context) (int64, error)
		DeleteAll(ctx context.Context) (int64, error)
	}

	BudgetRepository interface {
		ListByMonth(ctx context.Context, month string) ([]core.Budget, error)
		Get(ctx context.Context, id int64) (*core.Budget, error)
		GetByMonthCategory(ctx context.Context, month string, categoryID int64) (*core.Budget, error)
		// Upsert inserts or updates the (month, category) budget.
		Upsert(ctx context.Context, b core.Budget) (core.Budget, error)
		Delete(ctx context.Context, id int64) (int64, error)
		DeleteAll(ctx context.Context) (int64, error)
	}

	// Repositories bundles the per-entity repositories bound to one unit of work.
	Repositories interface {
		Accounts() AccountRepository
		Categories() CategoryRepository
		Transactions() TransactionRepository
		Budgets() BudgetRepository
	}

	// UnitOfWork runs fn inside one storage transaction. It commits when fn
	// returns nil and rolls back otherwise.
	UnitOfWork interface {
		Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	}

	// EventPublisher delivers domain events to downstream consumers.
	EventPublisher interface {
		Publish(ctx context.Context, evt core.Event) error
	}
)
