package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

type ReviewService struct {
	reviews storage.ReviewRepository
	movies  storage.MovieRepository
	policy  AccessPolicy
	logger  *slog.Logger
}

func NewReviewService(reviews storage.ReviewRepository, movies storage.MovieRepository, policy AccessPolicy, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		reviews: reviews,
		movies:  movies,
		policy:  policy,
		logger:  loggerOrDiscard(logger),
	}
}

// Create validates the rating before touching the store, then rejects a
// review for a movie that does not exist with storage.ErrInvalidReference.
func (s *ReviewService) Create(ctx context.Context, req CreateReviewRequest) (*storage.Review, error) {
	req.Comment = strings.TrimSpace(req.Comment)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.movieFor(ctx, req.MovieID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("create review: %w: movie id %d", storage.ErrInvalidReference, req.MovieID)
		}
		return nil, fmt.Errorf("create review: %w", err)
	}

	review := &storage.Review{
		MovieID: req.MovieID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	s.logger.DebugContext(ctx, "review created", "review_id", review.ID, "movie_id", review.MovieID, "rating", review.Rating)
	return review, nil
}

func (s *ReviewService) Get(ctx context.Context, id int64) (*storage.Review, error) {
	review, err := s.reviews.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if _, err := s.movieFor(ctx, review.MovieID); err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

func (s *ReviewService) ListByMovie(ctx context.Context, movieID int64) ([]storage.Review, error) {
	if _, err := s.movieFor(ctx, movieID); err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	reviews, err := s.reviews.ListByMovie(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// AverageRating returns the mean rating and review count of a movie. A movie
// without reviews reports (0, 0).
func (s *ReviewService) AverageRating(ctx context.Context, movieID int64) (float64, int, error) {
	if _, err := s.movieFor(ctx, movieID); err != nil {
		return 0, 0, fmt.Errorf("average rating: %w", err)
	}
	avg, count, err := s.reviews.AverageRating(ctx, movieID)
	if err != nil {
		return 0, 0, fmt.Errorf("average rating: %w", err)
	}
	return avg, count, nil
}

// Delete removes one review. A missing id is (false, nil).
func (s *ReviewService) Delete(ctx context.Context, id int64) (bool, error) {
	if err := s.policy.requireActor(ctx); err != nil {
		return false, err
	}
	review, err := s.reviews.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete review: %w", err)
	}
	if _, err := s.movieFor(ctx, review.MovieID); err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}

	ok, err := s.reviews.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	if ok {
		s.logger.InfoContext(ctx, "review deleted", "review_id", id)
	}
	return ok, nil
}

func (s *ReviewService) movieFor(ctx context.Context, movieID int64) (*storage.Movie, error) {
	if err := s.policy.requireActor(ctx); err != nil {
		return nil, err
	}
	movie, err := s.movies.Get(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if err := authorizeMovie(ctx, movie); err != nil {
		return nil, err
	}
	return movie, nil
}
