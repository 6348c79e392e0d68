package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type userRepository struct {
	db *sql.DB
}

func (r *userRepository) Create(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("create user: user is nil")
	}
	if user.Username == "" {
		return fmt.Errorf("create user: username is required")
	}
	if user.PasswordHash == "" {
		return fmt.Errorf("create user: password hash is required")
	}

	user.CreatedAt = nowUTC()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO users(username, password_hash, created_at)
		VALUES(?, ?, ?)
	`, user.Username, user.PasswordHash, fmtTime(user.CreatedAt))
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("create user: last insert id: %w", err)
	}
	user.ID = id
	return nil
}

func (r *userRepository) Get(ctx context.Context, id int64) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`, username)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: scan row: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: iterate: %w", err)
	}
	return users, nil
}

// Delete removes the user together with its sessions, its movies and the
// reviews of those movies.
func (r *userRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("delete user: begin tx: %w", err)
	}

	ok, err := rowExists(ctx, tx, "users", id)
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete user: %w", err)
	}
	if !ok {
		_ = tx.Rollback()
		return false, nil
	}

	cascade := []string{
		`DELETE FROM sessions WHERE user_id = ?`,
		`DELETE FROM reviews WHERE movie_id IN (SELECT id FROM movies WHERE user_id = ?)`,
		`DELETE FROM movies WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	}
	for _, stmt := range cascade {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			_ = tx.Rollback()
			return false, fmt.Errorf("delete user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("delete user: commit: %w", err)
	}
	return true, nil
}

func scanUser(scanner rowScanner) (*User, error) {
	var (
		user    User
		created string
	)
	if err := scanner.Scan(&user.ID, &user.Username, &user.PasswordHash, &created); err != nil {
		return nil, err
	}
	createdAt, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = createdAt
	return &user, nil
}
