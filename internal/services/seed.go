package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
)

// SkipReasonExistingTransactions explains why sample rows were not inserted.
const SkipReasonExistingTransactions = "DB já possui transações; pulando seed de transações para evitar duplicação."

// SeedOptions selects what the seed does.
type SeedOptions struct {
	Month                  core.Month
	Reset                  bool
	WithSampleTransactions bool
}

// SeedReport summarises one seed run. Existing rows are counted as updated.
type SeedReport struct {
	Month                     string `json:"month"`
	Reset                     bool   `json:"reset"`
	WithSampleTransactions    bool   `json:"with_sample_transactions"`
	CreatedAccounts           int    `json:"created_accounts"`
	UpdatedAccounts           int    `json:"updated_accounts"`
	CreatedCategories         int    `json:"created_categories"`
	UpdatedCategories         int    `json:"updated_categories"`
	CreatedBudgets            int    `json:"created_budgets"`
	UpdatedBudgets            int    `json:"updated_budgets"`
	CreatedTransactions       int    `json:"created_transactions"`
	CreatedTransfers          int    `json:"created_transfers"`
	SkippedTransactionsReason string `json:"skipped_transactions_reason,omitempty"`
}

type seedAccount struct{ name, accType string }

type seedCategory struct {
	name  string
	kind  core.CategoryKind
	group core.CategoryGroup
}

type seedBudget struct {
	category string
	amount   string
}

type seedTransaction struct {
	day         int
	description string
	amount      string
	kind        core.TxKind
	account     seedAccount
	category    string
}

var (
	seedCarteira = seedAccount{"Carteira", "CASH"}
	seedBanco    = seedAccount{"Banco", "BANK"}

	seedAccounts = []seedAccount{seedCarteira, seedBanco}

	seedCategories = []seedCategory{
		{"Salário", core.CategoryIncome, core.GroupEssential},
		{"Freelance", core.CategoryIncome, core.GroupOther},
		{"Alimentação", core.CategoryExpense, core.GroupEssential},
		{"Transporte", core.CategoryExpense, core.GroupEssential},
		{"Lazer", core.CategoryExpense, core.GroupLifestyle},
		{"Saúde", core.CategoryExpense, core.GroupEssential},
		{"Educação", core.CategoryExpense, core.GroupFuture},
	}

	seedBudgets = []seedBudget{
		{"Alimentação", "600.00"},
		{"Transporte", "300.00"},
		{"Lazer", "200.00"},
		{"Saúde", "150.00"},
	}

	// Educação is realized without a budget on purpose.
	seedTransactions = []seedTransaction{
		{5, "Salário (seed)", "5000.00", core.TxIncome, seedBanco, "Salário"},
		{12, "Freelance (seed)", "800.00", core.TxIncome, seedBanco, "Freelance"},
		{10, "Supermercado (seed)", "-450.00", core.TxExpense, seedBanco, "Alimentação"},
		{15, "Ônibus / combustível (seed)", "-120.00", core.TxExpense, seedCarteira, "Transporte"},
		{20, "Cinema (seed)", "-90.00", core.TxExpense, seedBanco, "Lazer"},
		{22, "Curso (seed)", "-250.00", core.TxExpense, seedBanco, "Educação"},
	}
)

type SeedService struct {
	*deps
}

// Run seeds the reference dataset in one unit of work. Accounts,
// categories and budgets are upserted; sample transactions are only added
// to an empty ledger unless Reset is set.
func (s *SeedService) Run(ctx context.Context, opts SeedOptions) (SeedReport, error) {
	logger := s.logger.WithComponent(log.ComponentSeed)

	report, err := within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) (SeedReport, error) {
		r := SeedReport{
			Month:                  opts.Month.String(),
			Reset:                  opts.Reset,
			WithSampleTransactions: opts.WithSampleTransactions,
		}

		if opts.Reset {
			if err := resetAll(ctx, repos); err != nil {
				return r, err
			}
		}

		accounts := make(map[seedAccount]int64, len(seedAccounts))
		for _, a := range seedAccounts {
			id, created, err := upsertAccount(ctx, repos.Accounts(), a)
			if err != nil {
				return r, err
			}
			accounts[a] = id
			if created {
				r.CreatedAccounts++
			} else {
				r.UpdatedAccounts++
			}
		}

		categories := make(map[string]int64, len(seedCategories))
		for _, c := range seedCategories {
			id, created, err := upsertCategory(ctx, repos.Categories(), c)
			if err != nil {
				return r, err
			}
			categories[c.name] = id
			if created {
				r.CreatedCategories++
			} else {
				r.UpdatedCategories++
			}
		}

		for _, b := range seedBudgets {
			existing, err := repos.Budgets().GetByMonthCategory(ctx, r.Month, categories[b.category])
			if err != nil {
				return r, err
			}
			if _, err := repos.Budgets().Upsert(ctx, core.Budget{
				Month:         r.Month,
				CategoryID:    categories[b.category],
				AmountPlanned: core.MustMoney(b.amount),
			}); err != nil {
				return r, err
			}
			if existing == nil {
				r.CreatedBudgets++
			} else {
				r.UpdatedBudgets++
			}
		}

		if !opts.WithSampleTransactions {
			return r, nil
		}

		count, err := repos.Transactions().Count(ctx)
		if err != nil {
			return r, err
		}
		if count > 0 && !opts.Reset {
			r.SkippedTransactionsReason = SkipReasonExistingTransactions
			return r, nil
		}

		for _, t := range seedTransactions {
			categoryID := categories[t.category]
			amount := core.MustMoney(t.amount)
			if err := core.CheckTransactionShape(t.kind, amount, &categoryID); err != nil {
				return r, fmt.Errorf("invalid seed transaction %q: %w", t.description, err)
			}
			if _, err := repos.Transactions().Create(ctx, core.Transaction{
				Date:        opts.Month.Day(t.day),
				Description: t.description,
				Amount:      amount,
				Kind:        t.kind,
				AccountID:   accounts[t.account],
				CategoryID:  &categoryID,
			}); err != nil {
				return r, err
			}
			r.CreatedTransactions++
		}

		out, in := core.TransferLegs(core.TransferDraft{
			Date:          opts.Month.Day(8),
			Description:   "Transferência Banco -> Carteira (seed)",
			AmountAbs:     core.MustMoney("400.00"),
			FromAccountID: accounts[seedBanco],
			ToAccountID:   accounts[seedCarteira],
		}, uuid.NewString())
		if _, err := repos.Transactions().Create(ctx, out); err != nil {
			return r, err
		}
		if _, err := repos.Transactions().Create(ctx, in); err != nil {
			return r, err
		}
		r.CreatedTransfers++

		return r, nil
	})
	if err != nil {
		return SeedReport{}, fmt.Errorf("seed %s: %w", opts.Month, err)
	}

	logger.InfoContext(ctx, "Seed completed",
		log.FieldMonth, report.Month,
		"created_accounts", report.CreatedAccounts,
		"created_categories", report.CreatedCategories,
		"created_budgets", report.CreatedBudgets,
		"created_transactions", report.CreatedTransactions,
		"created_transfers", report.CreatedTransfers)
	return report, nil
}

// resetAll deletes in foreign key order.
func resetAll(ctx context.Context, repos ports.Repositories) error {
	if _, err := repos.Transactions().DeleteAll(ctx); err != nil {
		return err
	}
	if _, err := repos.Budgets().DeleteAll(ctx); err != nil {
		return err
	}
	if _, err := repos.Categories().DeleteAll(ctx); err != nil {
		return err
	}
	_, err := repos.Accounts().DeleteAll(ctx)
	return err
}

func upsertAccount(ctx context.Context, accounts ports.AccountRepository, a seedAccount) (int64, bool, error) {
	existing, err := accounts.GetByNameType(ctx, a.name, a.accType)
	if err != nil {
		return 0, false, err
	}
	if existing == nil {
		acc, err := accounts.Create(ctx, a.name, a.accType)
		return acc.ID, true, err
	}
	if !existing.Active {
		existing.Active = true
		if err := accounts.Update(ctx, *existing); err != nil {
			return 0, false, err
		}
	}
	return existing.ID, false, nil
}

func upsertCategory(ctx context.Context, categories ports.CategoryRepository, c seedCategory) (int64, bool, error) {
	existing, err := categories.GetByName(ctx, c.name)
	if err != nil {
		return 0, false, err
	}
	if existing == nil {
		cat, err := categories.Create(ctx, core.Category{Name: c.name, Kind: c.kind, Group: c.group, Active: true})
		return cat.ID, true, err
	}
	if existing.Kind != c.kind || existing.Group != c.group || !existing.Active {
		existing.Kind, existing.Group, existing.Active = c.kind, c.group, true
		if err := categories.Update(ctx, *existing); err != nil {
			return 0, false, err
		}
	}
	return existing.ID, false, nil
}
