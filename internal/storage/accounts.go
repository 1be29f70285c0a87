package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

type accountRepo struct {
	c conn
}

const accountColumns = `id, name, type, active`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	err := row.Scan(&a.ID, &a.Name, &a.Type, &a.Active)
	return a, err
}

func (r accountRepo) List(ctx context.Context, includeInactive bool) ([]core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	var args []any
	if !includeInactive {
		query += ` WHERE active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY id`

	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []core.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r accountRepo) get(ctx context.Context, where string, args ...any) (*core.Account, error) {
	a, err := scanAccount(r.c.queryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r accountRepo) Get(ctx context.Context, id int64) (*core.Account, error) {
	a, err := r.get(ctx, `id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get account %d: %w", id, err)
	}
	return a, nil
}

func (r accountRepo) GetByNameType(ctx context.Context, name, accType string) (*core.Account, error) {
	a, err := r.get(ctx, `name = ? AND type = ?`, name, accType)
	if err != nil {
		return nil, fmt.Errorf("get account %q/%q: %w", name, accType, err)
	}
	return a, nil
}

func (r accountRepo) Create(ctx context.Context, name, accType string) (core.Account, error) {
	id, err := r.c.insertReturningID(ctx,
		`INSERT INTO accounts (name, type, active) VALUES (?, ?, ?) RETURNING id`,
		name, accType, true)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return core.Account{ID: id, Name: name, Type: accType, Active: true}, nil
}

func (r accountRepo) Update(ctx context.Context, acc core.Account) error {
	if _, err := r.c.exec(ctx,
		`UPDATE accounts SET name = ?, type = ?, active = ? WHERE id = ?`,
		acc.Name, acc.Type, acc.Active, acc.ID); err != nil {
		return fmt.Errorf("update account %d: %w", acc.ID, err)
	}
	return nil
}

func (r accountRepo) DeleteAll(ctx context.Context) (int64, error) {
	n, err := r.c.affected(ctx, `DELETE FROM accounts`)
	if err != nil {
		return 0, fmt.Errorf("delete accounts: %w", err)
	}
	return n, nil
}
