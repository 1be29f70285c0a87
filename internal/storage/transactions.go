package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

type transactionRepo struct {
	c conn
}

// Dates and amounts are cast to text so SQLite TEXT and PostgreSQL
// DATE/NUMERIC columns scan the same way.
const transactionColumns = `id, CAST(date AS TEXT), description, CAST(amount AS TEXT), kind, account_id, category_id, transfer_pair_id`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t          core.Transaction
		categoryID sql.NullInt64
		pairID     sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Date, &t.Description, &t.Amount, &t.Kind, &t.AccountID, &categoryID, &pairID); err != nil {
		return core.Transaction{}, err
	}
	if categoryID.Valid {
		id := categoryID.Int64
		t.CategoryID = &id
	}
	if pairID.Valid {
		p := pairID.String
		t.TransferPairID = &p
	}
	return t, nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func (r transactionRepo) List(ctx context.Context, f ports.TransactionFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.From != nil {
		where = append(where, `date >= ?`)
		args = append(args, f.From.String())
	}
	if f.To != nil {
		where = append(where, `date <= ?`)
		args = append(args, f.To.String())
	}
	if f.AccountID != nil {
		where = append(where, `account_id = ?`)
		args = append(args, *f.AccountID)
	}
	if f.CategoryID != nil {
		where = append(where, `category_id = ?`)
		args = append(args, *f.CategoryID)
	}
	if f.Kind != nil {
		where = append(where, `kind = ?`)
		args = append(args, string(*f.Kind))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r transactionRepo) Get(ctx context.Context, id int64) (*core.Transaction, error) {
	t, err := scanTransaction(r.c.queryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return &t, nil
}

func (r transactionRepo) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	id, err := r.c.insertReturningID(ctx,
		`INSERT INTO transactions (date, description, amount, kind, account_id, category_id, transfer_pair_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		t.Date.String(), t.Description, t.Amount.String(), string(t.Kind), t.AccountID,
		nullInt64(t.CategoryID), nullString(t.TransferPairID))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	t.ID = id
	return t, nil
}

func (r transactionRepo) Delete(ctx context.Context, id int64) (int64, error) {
	n, err := r.c.affected(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return n, nil
}

func (r transactionRepo) DeleteByPair(ctx context.Context, pairID string) (int64, error) {
	n, err := r.c.affected(ctx, `DELETE FROM transactions WHERE transfer_pair_id = ?`, pairID)
	if err != nil {
		return 0, fmt.Errorf("delete transfer %s: %w", pairID, err)
	}
	return n, nil
}

func (r transactionRepo) Ledger(ctx context.Context, from, to core.Date) ([]core.LedgerEntry, error) {
	rows, err := r.c.query(ctx,
		`SELECT kind, category_id, CAST(amount AS TEXT) FROM transactions
		 WHERE date >= ? AND date <= ? AND kind IN (?, ?)`,
		from.String(), to.String(), string(core.TxIncome), string(core.TxExpense))
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	defer rows.Close()

	var entries []core.LedgerEntry
	for rows.Next() {
		var (
			e          core.LedgerEntry
			categoryID sql.NullInt64
		)
		if err := rows.Scan(&e.Kind, &categoryID, &e.Amount); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if categoryID.Valid {
			id := categoryID.Int64
			e.CategoryID = &id
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r transactionRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.c.queryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (r transactionRepo) DeleteAll(ctx context.Context) (int64, error) {
	n, err := r.c.affected(ctx, `DELETE FROM transactions`)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	return n, nil
}
