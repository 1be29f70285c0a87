package core

// TransactionDraft is the input of an INCOME or EXPENSE transaction before
// it is persisted.
type TransactionDraft struct {
	Date        Date
	Description string
	Amount      Money
	Kind        TxKind
	AccountID   int64
	CategoryID  *int64
}

// TransferDraft is the input of a transfer between two accounts.
type TransferDraft struct {
	Date          Date
	Description   string
	AmountAbs     Money
	FromAccountID int64
	ToAccountID   int64
}

// CheckTransactionShape applies the rules that need no lookups, in order:
// transfer kind, amount sign for the kind, category presence.
func CheckTransactionShape(kind TxKind, amount Money, categoryID *int64) error {
	switch kind {
	case TxTransfer:
		return ErrTxUseTransferEndpoint
	case TxIncome:
		if !amount.IsPositive() {
			return ErrTxIncomeRequiresPositive
		}
	case TxExpense:
		if !amount.IsNegative() {
			return ErrTxExpenseRequiresNegative
		}
	}
	if categoryID == nil {
		return ErrTxCategoryRequired
	}
	return nil
}

// CheckAccountUsable rejects a missing or inactive account.
func CheckAccountUsable(acc *Account) error {
	if acc == nil || !acc.Active {
		return ErrAccountInvalidOrInactive
	}
	return nil
}

// CheckCategoryForKind rejects a missing or inactive category and one whose
// kind does not match the transaction kind.
func CheckCategoryForKind(cat *Category, kind TxKind) error {
	if cat == nil || !cat.Active {
		return ErrCategoryInvalidOrInactive
	}
	switch kind {
	case TxIncome:
		if cat.Kind != CategoryIncome {
			return ErrTxCategoryIncompatibleIncome
		}
	case TxExpense:
		if cat.Kind != CategoryExpense {
			return ErrTxCategoryIncompatibleExpense
		}
	}
	return nil
}

// CheckTransferShape validates a transfer before account lookups.
func CheckTransferShape(t TransferDraft) error {
	if t.FromAccountID == t.ToAccountID {
		return ErrTransferSameAccounts
	}
	if !t.AmountAbs.IsPositive() {
		return ErrTransferAmountNotPositive
	}
	return nil
}

// CheckTransferAccounts validates both ends of a transfer.
func CheckTransferAccounts(from, to *Account) error {
	if from == nil || !from.Active {
		return ErrTransferFromInvalid
	}
	if to == nil || !to.Active {
		return ErrTransferToInvalid
	}
	return nil
}

// CheckBudgetCategory enforces that budgets target active expense categories.
func CheckBudgetCategory(cat *Category) error {
	if cat == nil || !cat.Active {
		return ErrCategoryInvalidOrInactive
	}
	if cat.Kind != CategoryExpense {
		return ErrBudgetOnlyExpense
	}
	return nil
}

// TransferLegs builds the out and in rows of a transfer sharing pairID.
func TransferLegs(t TransferDraft, pairID string) (Transaction, Transaction) {
	amount := t.AmountAbs.Abs()
	pair := pairID
	out := Transaction{
		Date:           t.Date,
		Description:    t.Description,
		Amount:         amount.Neg(),
		Kind:           TxTransfer,
		AccountID:      t.FromAccountID,
		TransferPairID: &pair,
	}
	in := Transaction{
		Date:           t.Date,
		Description:    t.Description,
		Amount:         amount,
		Kind:           TxTransfer,
		AccountID:      t.ToAccountID,
		TransferPairID: &pair,
	}
	return out, in
}
