package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type categoryRepository struct {
	db *sql.DB
}

func (r *categoryRepository) Create(ctx context.Context, category *Category) error {
	if category == nil {
		return fmt.Errorf("create category: category is nil")
	}
	if category.Name == "" {
		return fmt.Errorf("create category: name is required")
	}

	category.CreatedAt = nowUTC()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO categories(name, created_at)
		VALUES(?, ?)
	`, category.Name, fmtTime(category.CreatedAt))
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create category: last insert id: %w", err)
	}
	category.ID = id
	return nil
}

func (r *categoryRepository) Get(ctx context.Context, id int64) (*Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM categories WHERE id = ?`, id)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (*Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM categories WHERE name = ?`, name)
	category, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get category by name: %w", err)
	}
	return category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("list categories: scan row: %w", err)
		}
		items = append(items, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: iterate: %w", err)
	}
	return items, nil
}

// Delete removes the category and clears category_id on its movies. The
// movies themselves are kept.
func (r *categoryRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("delete category: begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE movies SET category_id = NULL, updated_at = ?
		WHERE category_id = ?
	`, fmtTime(nowUTC()), id); err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete category: detach movies: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete category: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete category: %w", err)
	}
	if !ok {
		_ = tx.Rollback()
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("delete category: commit: %w", err)
	}
	return true, nil
}

func scanCategory(scanner rowScanner) (*Category, error) {
	var (
		category Category
		created  string
	)
	if err := scanner.Scan(&category.ID, &category.Name, &created); err != nil {
		return nil, err
	}
	createdAt, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	category.CreatedAt = createdAt
	return &category, nil
}
