package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type reviewRepository struct {
	db *sql.DB
}

// Create persists a review for an existing movie. A missing movie yields
// ErrInvalidReference and nothing is written.
func (r *reviewRepository) Create(ctx context.Context, review *Review) error {
	if review == nil {
		return fmt.Errorf("create review: review is nil")
	}

	review.CreatedAt = nowUTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create review: begin tx: %w", err)
	}

	movieID := review.MovieID
	if err := requireReference(ctx, tx, "movies", &movieID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create review: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO reviews(movie_id, rating, comment, created_at)
		VALUES(?, ?, ?, ?)
	`, review.MovieID, review.Rating, nullString(review.Comment), fmtTime(review.CreatedAt))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create review: insert: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create review: last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create review: commit: %w", err)
	}
	review.ID = id
	return nil
}

func (r *reviewRepository) Get(ctx context.Context, id int64) (*Review, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, movie_id, rating, comment, created_at
		FROM reviews
		WHERE id = ?
	`, id)
	review, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

func (r *reviewRepository) ListByMovie(ctx context.Context, movieID int64) ([]Review, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, movie_id, rating, comment, created_at
		FROM reviews
		WHERE movie_id = ?
		ORDER BY id ASC
	`, movieID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	reviews := []Review{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("list reviews: scan row: %w", err)
		}
		reviews = append(reviews, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reviews: iterate: %w", err)
	}
	return reviews, nil
}

// AverageRating returns the mean rating and the review count for a movie.
// A movie without reviews reports 0, 0.
func (r *reviewRepository) AverageRating(ctx context.Context, movieID int64) (float64, int, error) {
	var (
		avg   sql.NullFloat64
		count int
	)
	if err := r.db.QueryRowContext(ctx, `
		SELECT AVG(rating), COUNT(1) FROM reviews WHERE movie_id = ?
	`, movieID).Scan(&avg, &count); err != nil {
		return 0, 0, fmt.Errorf("average rating: %w", err)
	}
	return avg.Float64, count, nil
}

func (r *reviewRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	return ok, nil
}

func scanReview(scanner rowScanner) (*Review, error) {
	var (
		review  Review
		comment sql.NullString
		created string
	)
	if err := scanner.Scan(&review.ID, &review.MovieID, &review.Rating, &comment, &created); err != nil {
		return nil, err
	}
	createdAt, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	review.CreatedAt = createdAt
	review.Comment = comment.String
	return &review, nil
}
