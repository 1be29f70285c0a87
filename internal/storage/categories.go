package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

type categoryRepo struct {
	c conn
}

const categoryColumns = `id, name, kind, group_name, active`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	err := row.Scan(&c.ID, &c.Name, &c.Kind, &c.Group, &c.Active)
	return c, err
}

func (r categoryRepo) List(ctx context.Context, includeInactive bool) ([]core.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	var args []any
	if !includeInactive {
		query += ` WHERE active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY id`

	rows, err := r.c.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r categoryRepo) get(ctx context.Context, where string, args ...any) (*core.Category, error) {
	c, err := scanCategory(r.c.queryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r categoryRepo) Get(ctx context.Context, id int64) (*core.Category, error) {
	c, err := r.get(ctx, `id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (r categoryRepo) GetByName(ctx context.Context, name string) (*core.Category, error) {
	c, err := r.get(ctx, `name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("get category %q: %w", name, err)
	}
	return c, nil
}

func (r categoryRepo) Create(ctx context.Context, c core.Category) (core.Category, error) {
	id, err := r.c.insertReturningID(ctx,
		`INSERT INTO categories (name, kind, group_name, active) VALUES (?, ?, ?, ?) RETURNING id`,
		c.Name, string(c.Kind), string(c.Group), c.Active)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID = id
	return c, nil
}

func (r categoryRepo) Update(ctx context.Context, c core.Category) error {
	if _, err := r.c.exec(ctx,
		`UPDATE categories SET name = ?, kind = ?, group_name = ?, active = ? WHERE id = ?`,
		c.Name, string(c.Kind), string(c.Group), c.Active, c.ID); err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return nil
}

func (r categoryRepo) Names(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.c.query(ctx, `SELECT id, name FROM categories WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("resolve category names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan category name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

func (r categoryRepo) DeleteAll(ctx context.Context) (int64, error) {
	n, err := r.c.affected(ctx, `DELETE FROM categories`)
	if err != nil {
		return 0, fmt.Errorf("delete categories: %w", err)
	}
	return n, nil
}
