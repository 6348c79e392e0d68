package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/uvyne-rop/movie-watchlist/internal/app"
	"github.com/uvyne-rop/movie-watchlist/internal/storage"
	"github.com/uvyne-rop/movie-watchlist/internal/tui"
)

var runTUIFn = tui.Run

func newTUICommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse and edit the watchlist interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("tui does not accept positional arguments")
			}
			if deps.globals.JSON {
				return usageErrorf("tui does not support --json")
			}
			stdin := cmd.InOrStdin()
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if err := runTUIFn(tui.Options{
					Client: serviceClient{rt: rt},
					IsTTY:  func() bool { return stdinIsTerminal(stdin) },
				}); err != nil {
					return fmt.Errorf("tui: %w", err)
				}
				return nil
			})
		},
	}
}

// serviceClient serves the TUI straight from the app services, acting as the
// user resolved for this command.
type serviceClient struct {
	rt *appRuntime
}

func (c serviceClient) withActor(parent context.Context) context.Context {
	return app.WithActor(parent, c.rt.actor)
}

func (c serviceClient) ListMovies(ctx context.Context) ([]tui.Movie, error) {
	ctx = c.withActor(ctx)
	movies, err := c.rt.movies.List(ctx, app.ListMoviesRequest{})
	if err != nil {
		return nil, err
	}
	categories, err := c.rt.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(categories))
	for _, category := range categories {
		names[category.ID] = category.Name
	}

	out := make([]tui.Movie, 0, len(movies))
	for _, movie := range movies {
		item := toTUIMovie(movie)
		if movie.CategoryID != nil {
			item.Category = names[*movie.CategoryID]
		}
		item.AverageRating, item.ReviewCount, err = c.rt.reviews.AverageRating(ctx, movie.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (c serviceClient) ListCategories(ctx context.Context) ([]tui.Category, error) {
	categories, err := c.rt.categories.List(c.withActor(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]tui.Category, 0, len(categories))
	for _, category := range categories {
		out = append(out, tui.Category{ID: category.ID, Name: category.Name})
	}
	return out, nil
}

func (c serviceClient) ListReviews(ctx context.Context, movieID int64) ([]tui.Review, error) {
	reviews, err := c.rt.reviews.ListByMovie(c.withActor(ctx), movieID)
	if err != nil {
		return nil, err
	}
	out := make([]tui.Review, 0, len(reviews))
	for _, review := range reviews {
		out = append(out, tui.Review{ID: review.ID, Rating: review.Rating, Comment: review.Comment})
	}
	return out, nil
}

func (c serviceClient) AddMovie(ctx context.Context, input tui.MovieInput) (tui.Movie, error) {
	movie, err := c.rt.movies.Create(c.withActor(ctx), app.CreateMovieRequest{
		Title:    input.Title,
		Director: input.Director,
		Genre:    input.Genre,
	})
	if err != nil {
		return tui.Movie{}, friendlyError(err)
	}
	return toTUIMovie(*movie), nil
}

func (c serviceClient) SetWatched(ctx context.Context, movieID int64, watched bool) error {
	_, err := c.rt.movies.MarkWatched(c.withActor(ctx), movieID, watched)
	return friendlyError(err)
}

func (c serviceClient) DeleteMovie(ctx context.Context, movieID int64) error {
	removed, err := c.rt.movies.Delete(c.withActor(ctx), movieID)
	if err != nil {
		return friendlyError(err)
	}
	if !removed {
		return fmt.Errorf("movie %d no longer exists", movieID)
	}
	return nil
}

func (c serviceClient) AddReview(ctx context.Context, movieID int64, rating float64, comment string) error {
	_, err := c.rt.reviews.Create(c.withActor(ctx), app.CreateReviewRequest{
		MovieID: movieID,
		Rating:  rating,
		Comment: comment,
	})
	return friendlyError(err)
}

func toTUIMovie(movie storage.Movie) tui.Movie {
	return tui.Movie{
		ID:         movie.ID,
		Title:      movie.Title,
		Director:   movie.Director,
		Genre:      movie.Genre,
		Watched:    movie.Watched,
		CategoryID: movie.CategoryID,
	}
}

// friendlyError strips the package prefixes of validation errors so the
// status line reads "rating must be between 1 and 5".
func friendlyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, app.ErrValidation) {
		message := err.Error()
		if _, rest, ok := strings.Cut(message, app.ErrValidation.Error()+": "); ok {
			return errors.New(rest)
		}
	}
	return err
}
