package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type sessionRepository struct {
	db *sql.DB
}

func (r *sessionRepository) Create(ctx context.Context, session *Session) error {
	if session == nil {
		return fmt.Errorf("create session: session is nil")
	}
	if session.ExpiresAt.IsZero() {
		return fmt.Errorf("create session: expiry is required")
	}
	if session.Token == "" {
		session.Token = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = nowUTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create session: begin tx: %w", err)
	}
	userID := session.UserID
	if err := requireReference(ctx, tx, "users", &userID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions(token, user_id, created_at, expires_at)
		VALUES(?, ?, ?, ?)
	`, session.Token, session.UserID, fmtTime(session.CreatedAt), fmtTime(session.ExpiresAt)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create session: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create session: commit: %w", err)
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, token string) (*Session, error) {
	var (
		session Session
		created string
		expires string
	)
	if err := r.db.QueryRowContext(ctx, `
		SELECT token, user_id, created_at, expires_at
		FROM sessions
		WHERE token = ?
	`, token).Scan(&session.Token, &session.UserID, &created, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var err error
	session.CreatedAt, err = parseTime(created)
	if err != nil {
		return nil, err
	}
	session.ExpiresAt, err = parseTime(expires)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Delete(ctx context.Context, token string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return ok, nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, fmtTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: rows affected: %w", err)
	}
	return count, nil
}
