package services

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

type TransactionService struct {
	*deps
}

// List returns transactions newest first. From and To must come together.
func (s *TransactionService) List(ctx context.Context, f ports.TransactionFilter) ([]core.Transaction, error) {
	if (f.From == nil) != (f.To == nil) {
		return nil, core.ErrTxFromToBothRequired
	}
	return within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) ([]core.Transaction, error) {
		return repos.Transactions().List(ctx, f)
	})
}

// Create records an INCOME or EXPENSE transaction. Rules run in a fixed
// order and the first failure is returned.
func (s *TransactionService) Create(ctx context.Context, d core.TransactionDraft) (core.Transaction, error) {
	if err := core.CheckTransactionShape(d.Kind, d.Amount, d.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	tx, err := within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) (core.Transaction, error) {
		acc, err := repos.Accounts().Get(ctx, d.AccountID)
		if err != nil {
			return core.Transaction{}, err
		}
		if err := core.CheckAccountUsable(acc); err != nil {
			return core.Transaction{}, err
		}

		cat, err := repos.Categories().Get(ctx, *d.CategoryID)
		if err != nil {
			return core.Transaction{}, err
		}
		if err := core.CheckCategoryForKind(cat, d.Kind); err != nil {
			return core.Transaction{}, err
		}

		return repos.Transactions().Create(ctx, core.Transaction{
			Date:        d.Date,
			Description: d.Description,
			Amount:      d.Amount,
			Kind:        d.Kind,
			AccountID:   d.AccountID,
			CategoryID:  d.CategoryID,
		})
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.events.emit(ctx, core.NewEvent(core.EventTransactionCreated, tx.Date.MonthKey(), strconv.FormatInt(tx.ID, 10)))
	return tx, nil
}

// Transfer moves AmountAbs between two accounts as a pair of rows written
// in one unit of work.
func (s *TransactionService) Transfer(ctx context.Context, d core.TransferDraft) (core.TransferResult, error) {
	if err := core.CheckTransferShape(d); err != nil {
		return core.TransferResult{}, err
	}

	res, err := within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) (core.TransferResult, error) {
		from, err := repos.Accounts().Get(ctx, d.FromAccountID)
		if err != nil {
			return core.TransferResult{}, err
		}
		to, err := repos.Accounts().Get(ctx, d.ToAccountID)
		if err != nil {
			return core.TransferResult{}, err
		}
		if err := core.CheckTransferAccounts(from, to); err != nil {
			return core.TransferResult{}, err
		}

		pairID := uuid.NewString()
		out, in := core.TransferLegs(d, pairID)

		outRow, err := repos.Transactions().Create(ctx, out)
		if err != nil {
			return core.TransferResult{}, err
		}
		inRow, err := repos.Transactions().Create(ctx, in)
		if err != nil {
			return core.TransferResult{}, err
		}
		return core.TransferResult{PairID: pairID, OutID: outRow.ID, InID: inRow.ID}, nil
	})
	if err != nil {
		return core.TransferResult{}, err
	}

	s.events.emit(ctx, core.NewEvent(core.EventTransferCreated, d.Date.MonthKey(), res.PairID))
	return res, nil
}

// Delete removes a transaction. Deleting either leg of a transfer removes
// both legs.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	deleted, err := within(ctx, s.uow, func(ctx context.Context, repos ports.Repositories) (core.Transaction, error) {
		tx, err := repos.Transactions().Get(ctx, id)
		if err != nil {
			return core.Transaction{}, err
		}
		if tx == nil {
			return core.Transaction{}, core.ErrTxNotFound
		}

		var n int64
		if tx.IsTransferLeg() {
			n, err = repos.Transactions().DeleteByPair(ctx, *tx.TransferPairID)
		} else {
			n, err = repos.Transactions().Delete(ctx, id)
		}
		if err != nil {
			return core.Transaction{}, err
		}
		if n == 0 {
			return core.Transaction{}, core.ErrTxNotFound
		}
		return *tx, nil
	})
	if err != nil {
		return err
	}

	s.events.emit(ctx, core.NewEvent(core.EventTransactionDeleted, deleted.Date.MonthKey(), strconv.FormatInt(id, 10)))
	return nil
}
