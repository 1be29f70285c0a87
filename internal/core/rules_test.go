package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCheckTransactionShape(t *testing.T) {
	cat := int64Ptr(1)
	tests := []struct {
		name       string
		kind       TxKind
		amount     string
		categoryID *int64
		want       error
	}{
		{"transfer rejected first", TxTransfer, "-10", nil, ErrTxUseTransferEndpoint},
		{"income zero", TxIncome, "0", cat, ErrTxIncomeRequiresPositive},
		{"income negative", TxIncome, "-1", cat, ErrTxIncomeRequiresPositive},
		{"income rounds to zero", TxIncome, "0.004", cat, ErrTxIncomeRequiresPositive},
		{"expense zero", TxExpense, "0", cat, ErrTxExpenseRequiresNegative},
		{"expense positive", TxExpense, "5", cat, ErrTxExpenseRequiresNegative},
		{"sign checked before category", TxExpense, "5", nil, ErrTxExpenseRequiresNegative},
		{"missing category", TxIncome, "5", nil, ErrTxCategoryRequired},
		{"valid income", TxIncome, "5", cat, nil},
		{"valid expense", TxExpense, "-0.01", cat, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransactionShape(tt.kind, MustMoney(tt.amount), tt.categoryID)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckCategoryForKind(t *testing.T) {
	income := &Category{ID: 1, Kind: CategoryIncome, Active: true}
	expense := &Category{ID: 2, Kind: CategoryExpense, Active: true}
	inactive := &Category{ID: 3, Kind: CategoryExpense, Active: false}

	assert.ErrorIs(t, CheckCategoryForKind(nil, TxIncome), ErrCategoryInvalidOrInactive)
	assert.ErrorIs(t, CheckCategoryForKind(inactive, TxExpense), ErrCategoryInvalidOrInactive)
	assert.ErrorIs(t, CheckCategoryForKind(expense, TxIncome), ErrTxCategoryIncompatibleIncome)
	assert.ErrorIs(t, CheckCategoryForKind(income, TxExpense), ErrTxCategoryIncompatibleExpense)
	assert.NoError(t, CheckCategoryForKind(income, TxIncome))
	assert.NoError(t, CheckCategoryForKind(expense, TxExpense))
}

func TestCheckAccountUsable(t *testing.T) {
	assert.ErrorIs(t, CheckAccountUsable(nil), ErrAccountInvalidOrInactive)
	assert.ErrorIs(t, CheckAccountUsable(&Account{ID: 1}), ErrAccountInvalidOrInactive)
	assert.NoError(t, CheckAccountUsable(&Account{ID: 1, Active: true}))
}

func TestTransferRules(t *testing.T) {
	base := TransferDraft{Date: NewDate(2026, 1, 8), AmountAbs: MustMoney("400"), FromAccountID: 1, ToAccountID: 2}

	same := base
	same.ToAccountID = 1
	same.AmountAbs = MustMoney("0")
	assert.ErrorIs(t, CheckTransferShape(same), ErrTransferSameAccounts, "same accounts wins over amount")

	zero := base
	zero.AmountAbs = MustMoney("0")
	assert.ErrorIs(t, CheckTransferShape(zero), ErrTransferAmountNotPositive)

	negative := base
	negative.AmountAbs = MustMoney("-3")
	assert.ErrorIs(t, CheckTransferShape(negative), ErrTransferAmountNotPositive)
	assert.NoError(t, CheckTransferShape(base))

	active := &Account{ID: 1, Active: true}
	assert.ErrorIs(t, CheckTransferAccounts(nil, active), ErrTransferFromInvalid)
	assert.ErrorIs(t, CheckTransferAccounts(&Account{ID: 1}, nil), ErrTransferFromInvalid)
	assert.ErrorIs(t, CheckTransferAccounts(active, &Account{ID: 2}), ErrTransferToInvalid)
	assert.NoError(t, CheckTransferAccounts(active, &Account{ID: 2, Active: true}))
}

func TestTransferLegs(t *testing.T) {
	draft := TransferDraft{Date: NewDate(2026, 1, 8), Description: "move", AmountAbs: MustMoney("400.005"), FromAccountID: 2, ToAccountID: 1}
	out, in := TransferLegs(draft, "pair-1")

	assert.Equal(t, "-400.01", out.Amount.String())
	assert.Equal(t, "400.01", in.Amount.String())
	assert.True(t, out.Amount.Add(in.Amount).IsZero())
	assert.Equal(t, int64(2), out.AccountID)
	assert.Equal(t, int64(1), in.AccountID)
	for _, leg := range []Transaction{out, in} {
		require.NotNil(t, leg.TransferPairID)
		assert.Equal(t, "pair-1", *leg.TransferPairID)
		assert.Nil(t, leg.CategoryID)
		assert.Equal(t, TxTransfer, leg.Kind)
		assert.True(t, leg.IsTransferLeg())
	}
}

func TestCheckBudgetCategory(t *testing.T) {
	assert.ErrorIs(t, CheckBudgetCategory(nil), ErrCategoryInvalidOrInactive)
	assert.ErrorIs(t, CheckBudgetCategory(&Category{Kind: CategoryExpense}), ErrCategoryInvalidOrInactive)
	assert.ErrorIs(t, CheckBudgetCategory(&Category{Kind: CategoryIncome, Active: true}), ErrBudgetOnlyExpense)
	assert.NoError(t, CheckBudgetCategory(&Category{Kind: CategoryExpense, Active: true}))
}
