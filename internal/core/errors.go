package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain errors into the families the API reports.
type ErrorKind int

const (
	KindBadRequest ErrorKind = iota + 1
	KindUnauthorized
	KindNotFound
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a domain error with a stable machine-readable code.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches domain errors by code so errors.Is works against the
// predefined values below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func newError(kind ErrorKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// AsError extracts a domain error from err.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

var (
	ErrAPIKeyInvalid = newError(KindUnauthorized, "API_KEY_INVALID", "API key inválida")

	ErrAccountAlreadyExists     = newError(KindConflict, "ACCOUNT_ALREADY_EXISTS", "Conta já existe")
	ErrAccountNotFound          = newError(KindNotFound, "ACCOUNT_NOT_FOUND", "Conta não encontrada")
	ErrAccountInvalidOrInactive = newError(KindBadRequest, "ACCOUNT_INVALID_OR_INACTIVE", "Conta inválida/inativa")

	ErrCategoryAlreadyExists     = newError(KindConflict, "CATEGORY_ALREADY_EXISTS", "Categoria já existe")
	ErrCategoryNotFound          = newError(KindNotFound, "CATEGORY_NOT_FOUND", "Categoria não encontrada")
	ErrCategoryInvalidOrInactive = newError(KindBadRequest, "CATEGORY_INVALID_OR_INACTIVE", "Categoria inválida/inativa")

	ErrBudgetOnlyExpense = newError(KindBadRequest, "BUDGET_ONLY_EXPENSE_MVP", "Orçamento só é suportado para categorias de despesa no MVP")
	ErrBudgetNotFound    = newError(KindNotFound, "BUDGET_NOT_FOUND", "Orçamento não encontrado")

	ErrTxFromToBothRequired          = newError(KindBadRequest, "TX_FROM_TO_BOTH_REQUIRED", "Informe from_date e to_date juntos")
	ErrTxUseTransferEndpoint         = newError(KindBadRequest, "TX_USE_TRANSFER_ENDPOINT", "Use /transactions/transfer para transferências")
	ErrTxIncomeRequiresPositive      = newError(KindBadRequest, "TX_INCOME_REQUIRES_AMOUNT_GT_0", "INCOME requer amount > 0")
	ErrTxExpenseRequiresNegative     = newError(KindBadRequest, "TX_EXPENSE_REQUIRES_AMOUNT_LT_0", "EXPENSE requer amount < 0")
	ErrTxCategoryRequired            = newError(KindBadRequest, "TX_CATEGORY_ID_REQUIRED", "category_id é obrigatório para INCOME/EXPENSE")
	ErrTxCategoryIncompatibleIncome  = newError(KindBadRequest, "TX_CATEGORY_INCOMPATIBLE_INCOME", "Categoria incompatível com INCOME")
	ErrTxCategoryIncompatibleExpense = newError(KindBadRequest, "TX_CATEGORY_INCOMPATIBLE_EXPENSE", "Categoria incompatível com EXPENSE")
	ErrTxNotFound                    = newError(KindNotFound, "TX_NOT_FOUND", "Transação não encontrada")

	ErrTransferSameAccounts      = newError(KindBadRequest, "TRANSFER_SAME_ACCOUNTS", "Conta origem e destino não podem ser iguais.")
	ErrTransferAmountNotPositive = newError(KindBadRequest, "TRANSFER_AMOUNT_ABS_GT_0", "amount_abs deve ser > 0")
	ErrTransferFromInvalid       = newError(KindBadRequest, "TRANSFER_FROM_ACCOUNT_INVALID", "Conta origem inválida/inativa")
	ErrTransferToInvalid         = newError(KindBadRequest, "TRANSFER_TO_ACCOUNT_INVALID", "Conta destino inválida/inativa")

	ErrMonthFormat    = newError(KindBadRequest, "MONTH_FORMAT", "month deve estar no formato YYYY-MM")
	ErrMonthRange     = newError(KindBadRequest, "MONTH_RANGE", "month deve ter mês entre 01 e 12")
	ErrMonthYearRange = newError(KindBadRequest, "MONTH_YEAR_RANGE", "month deve ter ano válido (1900..3000)")
)
