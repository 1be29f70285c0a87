package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/ports"
	"fintrack/internal/services"
	"fintrack/internal/storage/storagetest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []core.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func newApp(t *testing.T) (*services.App, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	return services.NewApp(storagetest.New(t), services.WithPublisher(pub)), pub
}

func ptr[T any](v T) *T { return &v }

var jan2026 = core.Month{Year: 2026, Number: 1}

// fixture creates one active account and one category of each kind.
type fixture struct {
	account core.Account
	income  core.Category
	expense core.Category
}

func newFixture(t *testing.T, app *services.App) fixture {
	t.Helper()
	ctx := context.Background()
	acc, err := app.Accounts.Create(ctx, "Banco", "BANK")
	require.NoError(t, err)
	inc, err := app.Categories.Create(ctx, "Salário", core.CategoryIncome, core.GroupEssential)
	require.NoError(t, err)
	exp, err := app.Categories.Create(ctx, "Mercado", core.CategoryExpense, core.GroupEssential)
	require.NoError(t, err)
	return fixture{account: acc, income: inc, expense: exp}
}

func TestAccountService(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()

	acc, err := app.Accounts.Create(ctx, "Carteira", "")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultAccountType, acc.Type)
	assert.True(t, acc.Active)

	_, err = app.Accounts.Create(ctx, "Carteira", "BANK")
	assert.ErrorIs(t, err, core.ErrAccountAlreadyExists)

	cash, err := app.Accounts.Create(ctx, "Carteira", "CASH")
	require.NoError(t, err, "same name with another type is allowed")

	_, err = app.Accounts.Update(ctx, cash.ID, services.AccountUpdate{Type: ptr("BANK")})
	assert.ErrorIs(t, err, core.ErrAccountAlreadyExists)

	renamed, err := app.Accounts.Update(ctx, cash.ID, services.AccountUpdate{Name: ptr("Cofre")})
	require.NoError(t, err)
	assert.Equal(t, "Cofre", renamed.Name)
	assert.Equal(t, "CASH", renamed.Type)

	// Updating only the active flag never trips the collision check.
	_, err = app.Accounts.Update(ctx, acc.ID, services.AccountUpdate{Active: ptr(true)})
	require.NoError(t, err)

	_, err = app.Accounts.Update(ctx, 999, services.AccountUpdate{Name: ptr("x")})
	assert.ErrorIs(t, err, core.ErrAccountNotFound)

	require.NoError(t, app.Accounts.Deactivate(ctx, cash.ID))
	assert.ErrorIs(t, app.Accounts.Deactivate(ctx, 999), core.ErrAccountNotFound)

	active, err := app.Accounts.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, acc.ID, active[0].ID)

	all, err := app.Accounts.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// An inactive account still blocks its (name, type).
	_, err = app.Accounts.Create(ctx, "Cofre", "CASH")
	assert.ErrorIs(t, err, core.ErrAccountAlreadyExists)
}

func TestCategoryService(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()

	food, err := app.Categories.Create(ctx, "Alimentação", core.CategoryExpense, core.GroupEssential)
	require.NoError(t, err)
	fun, err := app.Categories.Create(ctx, "Lazer", core.CategoryExpense, core.GroupLifestyle)
	require.NoError(t, err)

	_, err = app.Categories.Create(ctx, "Alimentação", core.CategoryIncome, core.GroupOther)
	assert.ErrorIs(t, err, core.ErrCategoryAlreadyExists)

	_, err = app.Categories.Update(ctx, fun.ID, services.CategoryUpdate{Name: ptr("Alimentação")})
	assert.ErrorIs(t, err, core.ErrCategoryAlreadyExists)

	// Renaming to its own name is not a conflict.
	same, err := app.Categories.Update(ctx, food.ID, services.CategoryUpdate{Name: ptr("Alimentação"), Group: ptr(core.GroupFuture)})
	require.NoError(t, err)
	assert.Equal(t, core.GroupFuture, same.Group)

	_, err = app.Categories.Update(ctx, 999, services.CategoryUpdate{})
	assert.ErrorIs(t, err, core.ErrCategoryNotFound)

	require.NoError(t, app.Categories.Deactivate(ctx, fun.ID))
	assert.ErrorIs(t, app.Categories.Deactivate(ctx, 999), core.ErrCategoryNotFound)

	active, err := app.Categories.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, food.ID, active[0].ID)

	all, err := app.Categories.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTransactionCreateRules(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()
	fx := newFixture(t, app)

	closed, err := app.Accounts.Create(ctx, "Fechada", "BANK")
	require.NoError(t, err)
	require.NoError(t, app.Accounts.Deactivate(ctx, closed.ID))

	retired, err := app.Categories.Create(ctx, "Antiga", core.CategoryExpense, core.GroupOther)
	require.NoError(t, err)
	require.NoError(t, app.Categories.Deactivate(ctx, retired.ID))

	day := jan2026.Day(10)
	tests := []struct {
		name  string
		draft core.TransactionDraft
		want  error
	}{
		{
			name:  "transfer kind",
			draft: core.TransactionDraft{Kind: core.TxTransfer, Amount: core.MustMoney("10"), AccountID: 999},
			want:  core.ErrTxUseTransferEndpoint,
		},
		{
			name:  "income not positive wins over missing category",
			draft: core.TransactionDraft{Kind: core.TxIncome, Amount: core.MustMoney("0")},
			want:  core.ErrTxIncomeRequiresPositive,
		},
		{
			name:  "expense not negative",
			draft: core.TransactionDraft{Kind: core.TxExpense, Amount: core.MustMoney("5"), CategoryID: &fx.expense.ID},
			want:  core.ErrTxExpenseRequiresNegative,
		},
		{
			name:  "missing category before account lookup",
			draft: core.TransactionDraft{Kind: core.TxExpense, Amount: core.MustMoney("-5"), AccountID: 999},
			want:  core.ErrTxCategoryRequired,
		},
		{
			name:  "unknown account",
			draft: core.TransactionDraft{Kind: core.TxExpense, Amount: core.MustMoney("-5"), AccountID: 999, CategoryID: &fx.expense.ID},
			want:  core.ErrAccountInvalidOrInactive,
		},
		{
			name:  "inactive account",
			draft: core.TransactionDraft{Kind: core.TxExpense, Amount: core.MustMoney("-5"), AccountID: closed.ID, CategoryID: &fx.expense.ID},
			want:  core.ErrAccountInvalidOrInactive,
		},
		{
			name:  "unknown category",
			draft: core.TransactionDraft{Kind: core.TxExpense, Amount: core.MustMoney("-5"), AccountID: fx.account.ID, CategoryID: ptr(int64(999))},
			want:  core.ErrCategoryInvalidOrInactive,
		},
		{
			name:  "inactive category",
			draft: core.TransactionDraft{Kind: core.TxExpense, Amount: core.MustMoney("-5"), AccountID: fx.account.ID, CategoryID: &retired.ID},
			want:  core.ErrCategoryInvalidOrInactive,
		},
		{
			name:  "income with expense category",
			draft: core.TransactionDraft{Kind: core.TxIncome, Amount: core.MustMoney("5"), AccountID: fx.account.ID, CategoryID: &fx.expense.ID},
			want:  core.ErrTxCategoryIncompatibleIncome,
		},
		{
			name:  "expense with income category",
			draft: core.TransactionDraft{Kind: core.TxExpense, Amount: core.MustMoney("-5"), AccountID: fx.account.ID, CategoryID: &fx.income.ID},
			want:  core.ErrTxCategoryIncompatibleExpense,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.draft.Date = day
			_, err := app.Transactions.Create(ctx, tt.draft)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	tx, err := app.Transactions.Create(ctx, core.TransactionDraft{
		Date:        day,
		Description: "Feira",
		Amount:      core.MustMoney("-12.345"),
		Kind:        core.TxExpense,
		AccountID:   fx.account.ID,
		CategoryID:  &fx.expense.ID,
	})
	require.NoError(t, err)
	assert.NotZero(t, tx.ID)
	assert.Equal(t, "-12.35", tx.Amount.String())
	assert.Nil(t, tx.TransferPairID)

	count, err := countTransactions(t, app)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "failed creates must not leave rows behind")
}

func countTransactions(t *testing.T, app *services.App) (int, error) {
	t.Helper()
	txs, err := app.Transactions.List(context.Background(), ports.TransactionFilter{})
	return len(txs), err
}

func TestTransferAndPairDelete(t *testing.T) {
	app, pub := newApp(t)
	ctx := context.Background()
	fx := newFixture(t, app)

	cash, err := app.Accounts.Create(ctx, "Carteira", "CASH")
	require.NoError(t, err)
	closed, err := app.Accounts.Create(ctx, "Fechada", "BANK")
	require.NoError(t, err)
	require.NoError(t, app.Accounts.Deactivate(ctx, closed.ID))

	rejects := []struct {
		name  string
		draft core.TransferDraft
		want  error
	}{
		{"same accounts", core.TransferDraft{AmountAbs: core.MustMoney("0"), FromAccountID: cash.ID, ToAccountID: cash.ID}, core.ErrTransferSameAccounts},
		{"zero amount", core.TransferDraft{AmountAbs: core.MustMoney("0"), FromAccountID: fx.account.ID, ToAccountID: cash.ID}, core.ErrTransferAmountNotPositive},
		{"negative amount", core.TransferDraft{AmountAbs: core.MustMoney("-1"), FromAccountID: fx.account.ID, ToAccountID: cash.ID}, core.ErrTransferAmountNotPositive},
		{"from missing", core.TransferDraft{AmountAbs: core.MustMoney("1"), FromAccountID: 999, ToAccountID: cash.ID}, core.ErrTransferFromInvalid},
		{"from inactive", core.TransferDraft{AmountAbs: core.MustMoney("1"), FromAccountID: closed.ID, ToAccountID: cash.ID}, core.ErrTransferFromInvalid},
		{"to inactive", core.TransferDraft{AmountAbs: core.MustMoney("1"), FromAccountID: fx.account.ID, ToAccountID: closed.ID}, core.ErrTransferToInvalid},
	}
	for _, tt := range rejects {
		t.Run(tt.name, func(t *testing.T) {
			tt.draft.Date = jan2026.Day(8)
			_, err := app.Transactions.Transfer(ctx, tt.draft)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	res, err := app.Transactions.Transfer(ctx, core.TransferDraft{
		Date:          jan2026.Day(8),
		AmountAbs:     core.MustMoney("400"),
		FromAccountID: fx.account.ID,
		ToAccountID:   cash.ID,
	})
	require.NoError(t, err)
	assert.Len(t, res.PairID, 36)
	assert.NotEqual(t, res.OutID, res.InID)

	legs, err := app.Transactions.List(ctx, ports.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, legs, 2)
	sum := core.SumMoney(legs[0].Amount, legs[1].Amount)
	assert.True(t, sum.IsZero(), "legs must cancel out, got %s", sum)
	for _, leg := range legs {
		assert.Equal(t, core.TxTransfer, leg.Kind)
		assert.Nil(t, leg.CategoryID)
		require.NotNil(t, leg.TransferPairID)
		assert.Equal(t, res.PairID, *leg.TransferPairID)
		if leg.ID == res.OutID {
			assert.Equal(t, "-400.00", leg.Amount.String())
			assert.Equal(t, fx.account.ID, leg.AccountID)
		} else {
			assert.Equal(t, "400.00", leg.Amount.String())
			assert.Equal(t, cash.ID, leg.AccountID)
		}
	}

	// Deleting the "in" leg removes both.
	require.NoError(t, app.Transactions.Delete(ctx, res.InID))
	n, err := countTransactions(t, app)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, app.Transactions.Delete(ctx, res.OutID), core.ErrTxNotFound)
	assert.Equal(t, []core.EventType{core.EventTransferCreated, core.EventTransactionDeleted}, pub.types())
	assert.Equal(t, "2026-01", pub.events[1].Month)
}

func TestTransactionList(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()
	fx := newFixture(t, app)

	for _, d := range []int{3, 20, 20} {
		_, err := app.Transactions.Create(ctx, core.TransactionDraft{
			Date: jan2026.Day(d), Amount: core.MustMoney("-1"), Kind: core.TxExpense,
			AccountID: fx.account.ID, CategoryID: &fx.expense.ID,
		})
		require.NoError(t, err)
	}
	_, err := app.Transactions.Create(ctx, core.TransactionDraft{
		Date: core.NewDate(2026, 2, 1), Amount: core.MustMoney("100"), Kind: core.TxIncome,
		AccountID: fx.account.ID, CategoryID: &fx.income.ID,
	})
	require.NoError(t, err)

	_, err = app.Transactions.List(ctx, ports.TransactionFilter{From: ptr(jan2026.Day(1))})
	assert.ErrorIs(t, err, core.ErrTxFromToBothRequired)

	first, last := jan2026.Range()
	jan, err := app.Transactions.List(ctx, ports.TransactionFilter{From: &first, To: &last})
	require.NoError(t, err)
	require.Len(t, jan, 3)
	assert.Equal(t, 20, jan[0].Date.Day())
	assert.Greater(t, jan[0].ID, jan[1].ID, "same date sorts by id desc")
	assert.Equal(t, 3, jan[2].Date.Day())

	income, err := app.Transactions.List(ctx, ports.TransactionFilter{Kind: ptr(core.TxIncome)})
	require.NoError(t, err)
	require.Len(t, income, 1)

	byCategory, err := app.Transactions.List(ctx, ports.TransactionFilter{CategoryID: &fx.expense.ID, AccountID: &fx.account.ID})
	require.NoError(t, err)
	assert.Len(t, byCategory, 3)
}

func TestBudgetService(t *testing.T) {
	app, pub := newApp(t)
	ctx := context.Background()
	fx := newFixture(t, app)

	_, err := app.Budgets.Upsert(ctx, services.BudgetInput{Month: jan2026, CategoryID: fx.income.ID, AmountPlanned: core.MustMoney("10")})
	assert.ErrorIs(t, err, core.ErrBudgetOnlyExpense)

	_, err = app.Budgets.Upsert(ctx, services.BudgetInput{Month: jan2026, CategoryID: 999, AmountPlanned: core.MustMoney("10")})
	assert.ErrorIs(t, err, core.ErrCategoryInvalidOrInactive)

	b1, err := app.Budgets.Upsert(ctx, services.BudgetInput{Month: jan2026, CategoryID: fx.expense.ID, AmountPlanned: core.MustMoney("600")})
	require.NoError(t, err)
	b2, err := app.Budgets.Upsert(ctx, services.BudgetInput{Month: jan2026, CategoryID: fx.expense.ID, AmountPlanned: core.MustMoney("650.5")})
	require.NoError(t, err)
	assert.Equal(t, b1.ID, b2.ID, "upsert keeps the row")
	assert.Equal(t, "650.50", b2.AmountPlanned.String())

	list, err := app.Budgets.ListByMonth(ctx, "2026-01")
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = app.Budgets.ListByMonth(ctx, "2026-1")
	assert.ErrorIs(t, err, core.ErrMonthFormat)
	_, err = app.Budgets.ListByMonth(ctx, "2026-13")
	assert.ErrorIs(t, err, core.ErrMonthRange)
	_, err = app.Budgets.ListByMonth(ctx, "1899-01")
	assert.ErrorIs(t, err, core.ErrMonthYearRange)

	require.NoError(t, app.Budgets.Delete(ctx, b1.ID))
	assert.ErrorIs(t, app.Budgets.Delete(ctx, b1.ID), core.ErrBudgetNotFound)

	assert.Equal(t, []core.EventType{core.EventBudgetUpserted, core.EventBudgetUpserted, core.EventBudgetDeleted}, pub.types())
}

func TestMonthlySummarySeedExample(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()

	_, err := app.Seed.Run(ctx, services.SeedOptions{Month: jan2026, WithSampleTransactions: true})
	require.NoError(t, err)

	s, err := app.Reports.MonthlySummary(ctx, "2026-01")
	require.NoError(t, err)
	assert.Equal(t, "2026-01", s.Month)
	assert.Equal(t, "5800.00", s.IncomeTotal.String())
	assert.Equal(t, "910.00", s.ExpenseTotal.String())
	assert.Equal(t, "4890.00", s.Balance.String())

	type line struct{ name, planned, realized, deviation string }
	var got []line
	for _, l := range s.ByCategory {
		got = append(got, line{l.CategoryName, l.Planned.String(), l.Realized.String(), l.Deviation.String()})
	}
	assert.Equal(t, []line{
		{"Alimentação", "600.00", "450.00", "-150.00"},
		{"Transporte", "300.00", "120.00", "-180.00"},
		{"Lazer", "200.00", "90.00", "-110.00"},
		{"Saúde", "150.00", "0.00", "-150.00"},
		{"Educação", "0.00", "250.00", "250.00"},
	}, got)
	for i := 1; i < len(s.ByCategory); i++ {
		assert.Less(t, s.ByCategory[i-1].CategoryID, s.ByCategory[i].CategoryID)
	}

	// A month without data is all zeros.
	empty, err := app.Reports.MonthlySummary(ctx, "2026-02")
	require.NoError(t, err)
	assert.Equal(t, "0.00", empty.IncomeTotal.String())
	assert.Equal(t, "0.00", empty.ExpenseTotal.String())
	assert.Equal(t, "0.00", empty.Balance.String())
	assert.Empty(t, empty.ByCategory)

	_, err = app.Reports.MonthlySummary(ctx, "2026-00")
	assert.ErrorIs(t, err, core.ErrMonthRange)
}

func TestReportNamesInactiveCategories(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()
	fx := newFixture(t, app)

	_, err := app.Transactions.Create(ctx, core.TransactionDraft{
		Date: jan2026.Day(2), Amount: core.MustMoney("-30"), Kind: core.TxExpense,
		AccountID: fx.account.ID, CategoryID: &fx.expense.ID,
	})
	require.NoError(t, err)
	require.NoError(t, app.Categories.Deactivate(ctx, fx.expense.ID))

	s, err := app.Reports.Summary(ctx, jan2026)
	require.NoError(t, err)
	require.Len(t, s.ByCategory, 1)
	assert.Equal(t, "Mercado", s.ByCategory[0].CategoryName)
}

func TestSeedIsIdempotent(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()
	opts := services.SeedOptions{Month: jan2026, WithSampleTransactions: true}

	first, err := app.Seed.Run(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, first.CreatedAccounts)
	assert.Equal(t, 7, first.CreatedCategories)
	assert.Equal(t, 4, first.CreatedBudgets)
	assert.Equal(t, 6, first.CreatedTransactions)
	assert.Equal(t, 1, first.CreatedTransfers)
	assert.Empty(t, first.SkippedTransactionsReason)

	second, err := app.Seed.Run(ctx, opts)
	require.NoError(t, err)
	assert.Zero(t, second.CreatedAccounts)
	assert.Equal(t, 2, second.UpdatedAccounts)
	assert.Equal(t, 7, second.UpdatedCategories)
	assert.Equal(t, 4, second.UpdatedBudgets)
	assert.Zero(t, second.CreatedTransactions)
	assert.Equal(t, services.SkipReasonExistingTransactions, second.SkippedTransactionsReason)

	n, err := countTransactions(t, app)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	reset, err := app.Seed.Run(ctx, services.SeedOptions{Month: jan2026, Reset: true, WithSampleTransactions: true})
	require.NoError(t, err)
	assert.Equal(t, 2, reset.CreatedAccounts)
	assert.Equal(t, 6, reset.CreatedTransactions)

	n, err = countTransactions(t, app)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestSeedReactivatesAccounts(t *testing.T) {
	app, _ := newApp(t)
	ctx := context.Background()

	_, err := app.Seed.Run(ctx, services.SeedOptions{Month: jan2026})
	require.NoError(t, err)
	accounts, err := app.Accounts.List(ctx, false)
	require.NoError(t, err)
	require.NoError(t, app.Accounts.Deactivate(ctx, accounts[0].ID))

	_, err = app.Seed.Run(ctx, services.SeedOptions{Month: jan2026})
	require.NoError(t, err)
	accounts, err = app.Accounts.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	app, pub := newApp(t)
	ctx := context.Background()
	fx := newFixture(t, app)
	pub.err = errors.New("broker down")

	tx, err := app.Transactions.Create(ctx, core.TransactionDraft{
		Date: jan2026.Day(1), Amount: core.MustMoney("10"), Kind: core.TxIncome,
		AccountID: fx.account.ID, CategoryID: &fx.income.ID,
	})
	require.NoError(t, err)
	assert.NotZero(t, tx.ID)
}

func TestNoEventsForFailedWrites(t *testing.T) {
	app, pub := newApp(t)
	ctx := context.Background()

	_, err := app.Transactions.Create(ctx, core.TransactionDraft{Kind: core.TxIncome, Amount: core.MustMoney("1"), CategoryID: ptr(int64(1)), AccountID: 1})
	require.Error(t, err)
	assert.Error(t, app.Transactions.Delete(ctx, 1))
	assert.Empty(t, pub.types())
}
