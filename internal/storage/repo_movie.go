package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const movieColumns = `id, title, director, genre, watched, category_id, user_id, created_at, updated_at`

type movieRepository struct {
	db *sql.DB
}

func (r *movieRepository) Create(ctx context.Context, movie *Movie) error {
	if movie == nil {
		return fmt.Errorf("create movie: movie is nil")
	}
	if movie.Title == "" || movie.Director == "" || movie.Genre == "" {
		return fmt.Errorf("create movie: title, director and genre are required")
	}

	now := nowUTC()
	movie.CreatedAt = now
	movie.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create movie: begin tx: %w", err)
	}

	if err := requireReference(ctx, tx, "categories", movie.CategoryID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create movie: %w", err)
	}
	if err := requireReference(ctx, tx, "users", movie.UserID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create movie: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO movies(title, director, genre, watched, category_id, user_id, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`, movie.Title, movie.Director, movie.Genre, movie.Watched, nullInt64(movie.CategoryID), nullInt64(movie.UserID),
		fmtTime(movie.CreatedAt), fmtTime(movie.UpdatedAt))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create movie: insert: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create movie: last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create movie: commit: %w", err)
	}
	movie.ID = id
	return nil
}

func (r *movieRepository) Get(ctx context.Context, id int64) (*Movie, error) {
	return getMovie(ctx, r.db, id)
}

func (r *movieRepository) List(ctx context.Context, filter MovieFilter) ([]Movie, error) {
	query := `SELECT ` + movieColumns + ` FROM movies WHERE 1=1 `
	args := []any{}

	switch {
	case filter.UserID != nil:
		query += ` AND user_id = ? `
		args = append(args, *filter.UserID)
	case filter.Unowned:
		query += ` AND user_id IS NULL `
	}
	if filter.CategoryID != nil {
		query += ` AND category_id = ? `
		args = append(args, *filter.CategoryID)
	}
	if filter.Watched != nil {
		query += ` AND watched = ? `
		args = append(args, *filter.Watched)
	}
	query += ` ORDER BY id ASC `

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	movies := []Movie{}
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("list movies: scan row: %w", err)
		}
		movies = append(movies, *movie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list movies: iterate: %w", err)
	}
	return movies, nil
}

func (r *movieRepository) Update(ctx context.Context, movie *Movie) error {
	if movie == nil {
		return fmt.Errorf("update movie: movie is nil")
	}
	if movie.ID == 0 {
		return fmt.Errorf("update movie: id is required")
	}
	movie.UpdatedAt = nowUTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update movie: begin tx: %w", err)
	}

	if err := requireReference(ctx, tx, "categories", movie.CategoryID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update movie: %w", err)
	}
	if err := requireReference(ctx, tx, "users", movie.UserID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update movie: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE movies
		SET title = ?, director = ?, genre = ?, watched = ?, category_id = ?, user_id = ?, updated_at = ?
		WHERE id = ?
	`, movie.Title, movie.Director, movie.Genre, movie.Watched, nullInt64(movie.CategoryID), nullInt64(movie.UserID),
		fmtTime(movie.UpdatedAt), movie.ID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update movie: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update movie: %w", err)
	}
	if !ok {
		_ = tx.Rollback()
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update movie: commit: %w", err)
	}
	return nil
}

func (r *movieRepository) SetWatched(ctx context.Context, id int64, watched bool) (*Movie, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("set watched: begin tx: %w", err)
	}

	result, err := tx.ExecContext(ctx, `UPDATE movies SET watched = ?, updated_at = ? WHERE id = ?`,
		watched, fmtTime(nowUTC()), id)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("set watched: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("set watched: %w", err)
	}
	if !ok {
		_ = tx.Rollback()
		return nil, ErrNotFound
	}

	movie, err := getMovie(ctx, tx, id)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("set watched: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("set watched: commit: %w", err)
	}
	return movie, nil
}

// Delete removes the movie's reviews, then the movie.
func (r *movieRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("delete movie: begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE movie_id = ?`, id); err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete movie: remove reviews: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete movie: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete movie: %w", err)
	}
	if !ok {
		_ = tx.Rollback()
		return false, nil
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("delete movie: commit: %w", err)
	}
	return true, nil
}

func getMovie(ctx context.Context, q execer, id int64) (*Movie, error) {
	row := q.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
	movie, err := scanMovie(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get movie: %w", err)
	}
	return movie, nil
}

func scanMovie(scanner rowScanner) (*Movie, error) {
	var (
		movie      Movie
		categoryID sql.NullInt64
		userID     sql.NullInt64
		created    string
		updated    string
	)
	if err := scanner.Scan(&movie.ID, &movie.Title, &movie.Director, &movie.Genre, &movie.Watched,
		&categoryID, &userID, &created, &updated); err != nil {
		return nil, err
	}

	var err error
	movie.CreatedAt, err = parseTime(created)
	if err != nil {
		return nil, err
	}
	movie.UpdatedAt, err = parseTime(updated)
	if err != nil {
		return nil, err
	}
	movie.CategoryID = int64Ptr(categoryID)
	movie.UserID = int64Ptr(userID)
	return &movie, nil
}
