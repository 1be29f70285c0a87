package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/ports"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn binds a queryer to a dialect so repositories can write ? placeholders.
type conn struct {
	q       queryer
	dialect Dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := c.q.ExecContext(ctx, Rebind(c.dialect, query), args...)
	return res, translate(err)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, Rebind(c.dialect, query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, Rebind(c.dialect, query), args...)
}

// insertReturningID runs an INSERT ... RETURNING id statement.
func (c conn) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := c.queryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, translate(err)
	}
	return id, nil
}

func (c conn) affected(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type repositories struct {
	c conn
}

func (r repositories) Accounts() ports.AccountRepository         { return accountRepo(r) }
func (r repositories) Categories() ports.CategoryRepository      { return categoryRepo(r) }
func (r repositories) Transactions() ports.TransactionRepository { return transactionRepo(r) }
func (r repositories) Budgets() ports.BudgetRepository           { return budgetRepo(r) }

// Repositories returns repositories running directly on the pool, outside
// any transaction.
func (s *Store) Repositories() ports.Repositories {
	return repositories{c: conn{q: s.db, dialect: s.dialect}}
}

// Do implements ports.UnitOfWork. fn runs inside one database transaction
// that commits when fn returns nil and rolls back on error or panic.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, repositories{c: conn{q: tx, dialect: s.dialect}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Rollback failed", "error", rbErr)
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

var _ ports.UnitOfWork = (*Store)(nil)
