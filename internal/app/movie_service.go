package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

type MovieService struct {
	movies storage.MovieRepository
	policy AccessPolicy
	logger *slog.Logger
}

func NewMovieService(movies storage.MovieRepository, policy AccessPolicy, logger *slog.Logger) *MovieService {
	return &MovieService{
		movies: movies,
		policy: policy,
		logger: loggerOrDiscard(logger),
	}
}

// Create stores a movie. With an actor in ctx the movie is owned by them;
// otherwise it is unowned.
func (s *MovieService) Create(ctx context.Context, req CreateMovieRequest) (*storage.Movie, error) {
	if err := s.policy.requireActor(ctx); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Director = strings.TrimSpace(req.Director)
	req.Genre = strings.TrimSpace(req.Genre)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	movie := &storage.Movie{
		Title:      req.Title,
		Director:   req.Director,
		Genre:      req.Genre,
		Watched:    req.Watched,
		CategoryID: req.CategoryID,
	}
	if actor, ok := ActorFromContext(ctx); ok {
		ownerID := actor.ID
		movie.UserID = &ownerID
	}

	if err := s.movies.Create(ctx, movie); err != nil {
		return nil, fmt.Errorf("create movie: %w", err)
	}
	s.logger.DebugContext(ctx, "movie created", "movie_id", movie.ID, "title", movie.Title)
	return movie, nil
}

func (s *MovieService) Get(ctx context.Context, id int64) (*storage.Movie, error) {
	if err := s.policy.requireActor(ctx); err != nil {
		return nil, err
	}
	movie, err := s.movies.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get movie: %w", err)
	}
	if err := authorizeMovie(ctx, movie); err != nil {
		return nil, err
	}
	return movie, nil
}

// List returns movies in id order: the actor's movies, or the unowned ones
// when nobody is logged in.
func (s *MovieService) List(ctx context.Context, req ListMoviesRequest) ([]storage.Movie, error) {
	if err := s.policy.requireActor(ctx); err != nil {
		return nil, err
	}
	filter := storage.MovieFilter{
		CategoryID: req.CategoryID,
		Watched:    req.Watched,
	}
	if actor, ok := ActorFromContext(ctx); ok {
		ownerID := actor.ID
		filter.UserID = &ownerID
	} else {
		filter.Unowned = true
	}

	movies, err := s.movies.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return movies, nil
}

func (s *MovieService) ListByCategory(ctx context.Context, categoryID int64) ([]storage.Movie, error) {
	return s.List(ctx, ListMoviesRequest{CategoryID: &categoryID})
}

func (s *MovieService) MarkWatched(ctx context.Context, id int64, watched bool) (*storage.Movie, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("mark watched: %w", err)
	}
	movie, err := s.movies.SetWatched(ctx, id, watched)
	if err != nil {
		return nil, fmt.Errorf("mark watched: %w", err)
	}
	s.logger.DebugContext(ctx, "movie watched flag set", "movie_id", id, "watched", watched)
	return movie, nil
}

func (s *MovieService) Update(ctx context.Context, req UpdateMovieRequest) (*storage.Movie, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	movie, err := s.Get(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("update movie: %w", err)
	}

	if req.Title != nil {
		movie.Title = strings.TrimSpace(*req.Title)
	}
	if req.Director != nil {
		movie.Director = strings.TrimSpace(*req.Director)
	}
	if req.Genre != nil {
		movie.Genre = strings.TrimSpace(*req.Genre)
	}
	switch {
	case req.ClearCategory:
		movie.CategoryID = nil
	case req.CategoryID != nil:
		categoryID := *req.CategoryID
		movie.CategoryID = &categoryID
	}
	if movie.Title == "" || movie.Director == "" || movie.Genre == "" {
		return nil, fmt.Errorf("%w: title, director and genre must not be blank", ErrValidation)
	}

	if err := s.movies.Update(ctx, movie); err != nil {
		return nil, fmt.Errorf("update movie: %w", err)
	}
	return movie, nil
}

// Delete removes the movie and its reviews. A missing id is (false, nil).
func (s *MovieService) Delete(ctx context.Context, id int64) (bool, error) {
	if _, err := s.Get(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete movie: %w", err)
	}
	ok, err := s.movies.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete movie: %w", err)
	}
	if ok {
		s.logger.InfoContext(ctx, "movie deleted", "movie_id", id)
	}
	return ok, nil
}
