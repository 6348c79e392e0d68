package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/uvyne-rop/movie-watchlist/internal/app"
	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

func newMovieCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "movie",
		Aliases: []string{"movies"},
		Short:   "Movies on the watchlist",
	}
	cmd.AddCommand(
		newMovieAddCommand(deps),
		newMovieListCommand(deps),
		newMovieShowCommand(deps),
		newMovieWatchCommand(deps, "watch", true),
		newMovieWatchCommand(deps, "unwatch", false),
		newMovieEditCommand(deps),
		newMovieRemoveCommand(deps),
	)
	return cmd
}

func newMovieAddCommand(deps commandDeps) *cobra.Command {
	var (
		title    string
		director string
		genre    string
		category string
		watched  bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a movie",
		Example: "  watchlist movie add --title Alien --director \"Ridley Scott\" --genre Horror\n" +
			"  watchlist movie add --title Heat --director \"Michael Mann\" --genre Crime --category Favorites --watched",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("movie add does not accept positional arguments")
			}
			if strings.TrimSpace(title) == "" {
				return usageErrorf("movie add requires --title")
			}
			if strings.TrimSpace(director) == "" {
				return usageErrorf("movie add requires --director")
			}
			if strings.TrimSpace(genre) == "" {
				return usageErrorf("movie add requires --genre")
			}

			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				req := app.CreateMovieRequest{
					Title:    title,
					Director: director,
					Genre:    genre,
					Watched:  watched,
				}
				if category != "" {
					found, err := lookupCategory(ctx, rt, category)
					if err != nil {
						return err
					}
					req.CategoryID = &found.ID
				}
				movie, err := rt.movies.Create(ctx, req)
				if err != nil {
					return err
				}
				return printMovieOutput(deps, *movie)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Movie title")
	cmd.Flags().StringVar(&director, "director", "", "Director")
	cmd.Flags().StringVar(&genre, "genre", "", "Genre")
	cmd.Flags().StringVar(&category, "category", "", "Category id or name; use name:<name> for an all-digit name")
	cmd.Flags().BoolVar(&watched, "watched", false, "Mark the movie as already watched")
	return cmd
}

func newMovieListCommand(deps commandDeps) *cobra.Command {
	var (
		category  string
		watched   bool
		unwatched bool
	)

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List movies",
		Example: "  watchlist movie ls\n" +
			"  watchlist movie ls --category Favorites --unwatched",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("movie ls does not accept positional arguments")
			}
			if watched && unwatched {
				return usageErrorf("movie ls accepts only one of --watched and --unwatched")
			}

			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				req := app.ListMoviesRequest{}
				if category != "" {
					found, err := lookupCategory(ctx, rt, category)
					if err != nil {
						return err
					}
					req.CategoryID = &found.ID
				}
				if watched || unwatched {
					req.Watched = &watched
				}

				movies, err := rt.movies.List(ctx, req)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, movieViews(movies))
				}
				if deps.globals.Quiet {
					return nil
				}
				for _, movie := range movies {
					if _, err := fmt.Fprintln(deps.out, formatMovieLine(movie)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only movies in this category (id, name or name:<name>)")
	cmd.Flags().BoolVar(&watched, "watched", false, "Only watched movies")
	cmd.Flags().BoolVar(&unwatched, "unwatched", false, "Only movies not yet watched")
	return cmd
}

func newMovieShowCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <movie-id>",
		Short: "Show a movie with its reviews",
		Args:  exactlyOneID("movie", "movie show"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID("movie", args[0])
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				movie, err := rt.movies.Get(ctx, id)
				if err != nil {
					return err
				}
				reviews, err := rt.reviews.ListByMovie(ctx, id)
				if err != nil {
					return err
				}
				average, count, err := rt.reviews.AverageRating(ctx, id)
				if err != nil {
					return err
				}
				categoryName := ""
				if movie.CategoryID != nil {
					category, err := rt.categories.Get(ctx, *movie.CategoryID)
					if err != nil {
						return err
					}
					categoryName = category.Name
				}

				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{
						"movie":          toMovieView(*movie),
						"category":       categoryName,
						"reviews":        reviewViews(reviews),
						"average_rating": average,
						"review_count":   count,
					})
				}
				if deps.globals.Quiet {
					return nil
				}
				return printMovieDetail(deps, *movie, categoryName, reviews, average, count)
			})
		},
	}
}

func newMovieWatchCommand(deps commandDeps, use string, watched bool) *cobra.Command {
	short := "Mark a movie as watched"
	if !watched {
		short = "Mark a movie as not watched"
	}
	return &cobra.Command{
		Use:   use + " <movie-id>",
		Short: short,
		Args:  exactlyOneID("movie", "movie "+use),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID("movie", args[0])
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				movie, err := rt.movies.MarkWatched(ctx, id, watched)
				if err != nil {
					return err
				}
				return printMovieOutput(deps, *movie)
			})
		},
	}
}

func newMovieEditCommand(deps commandDeps) *cobra.Command {
	var (
		title      string
		director   string
		genre      string
		category   string
		noCategory bool
	)

	cmd := &cobra.Command{
		Use:   "edit <movie-id>",
		Short: "Edit a movie",
		Example: "  watchlist movie edit 3 --genre Thriller\n" +
			"  watchlist movie edit 3 --no-category",
		Args: exactlyOneID("movie", "movie edit"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID("movie", args[0])
			flags := cmd.Flags()
			if flags.Changed("category") && strings.TrimSpace(category) == "" {
				return usageErrorf("movie edit --category must not be empty; use --no-category to clear it")
			}
			if category != "" && noCategory {
				return usageErrorf("movie edit accepts only one of --category and --no-category")
			}
			if !flags.Changed("title") && !flags.Changed("director") && !flags.Changed("genre") &&
				!flags.Changed("category") && !noCategory {
				return usageErrorf("movie edit requires at least one change")
			}

			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				req := app.UpdateMovieRequest{ID: id, ClearCategory: noCategory}
				if flags.Changed("title") {
					req.Title = &title
				}
				if flags.Changed("director") {
					req.Director = &director
				}
				if flags.Changed("genre") {
					req.Genre = &genre
				}
				if category != "" {
					found, err := lookupCategory(ctx, rt, category)
					if err != nil {
						return err
					}
					req.CategoryID = &found.ID
				}
				movie, err := rt.movies.Update(ctx, req)
				if err != nil {
					return err
				}
				return printMovieOutput(deps, *movie)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Updated title")
	cmd.Flags().StringVar(&director, "director", "", "Updated director")
	cmd.Flags().StringVar(&genre, "genre", "", "Updated genre")
	cmd.Flags().StringVar(&category, "category", "", "Move the movie to this category (id, name or name:<name>)")
	cmd.Flags().BoolVar(&noCategory, "no-category", false, "Remove the movie from its category")
	return cmd
}

func newMovieRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <movie-id>",
		Short: "Delete a movie and its reviews",
		Args:  exactlyOneID("movie", "movie rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID("movie", args[0])
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				removed, err := rt.movies.Delete(ctx, id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("movie %d: %w", id, storage.ErrNotFound)
				}
				return printRemoved(deps, "movie", id)
			})
		},
	}
}

func printMovieOutput(deps commandDeps, movie storage.Movie) error {
	if deps.globals.JSON {
		return printJSON(deps.out, toMovieView(movie))
	}
	if deps.globals.Quiet {
		return nil
	}
	_, err := fmt.Fprintln(deps.out, formatMovieLine(movie))
	return err
}

func printMovieDetail(deps commandDeps, movie storage.Movie, category string, reviews []storage.Review, average float64, count int) error {
	if category == "" {
		category = "-"
	}
	lines := []string{
		fmt.Sprintf("id: %d", movie.ID),
		fmt.Sprintf("title: %s", movie.Title),
		fmt.Sprintf("director: %s", movie.Director),
		fmt.Sprintf("genre: %s", movie.Genre),
		fmt.Sprintf("category: %s", category),
		fmt.Sprintf("watched: %s", boolToState(movie.Watched, "yes", "no")),
	}
	if count == 0 {
		lines = append(lines, "rating: no reviews")
	} else {
		lines = append(lines, fmt.Sprintf("rating: %.1f/5 from %d reviews", average, count))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(deps.out, line); err != nil {
			return err
		}
	}
	for _, review := range reviews {
		if _, err := fmt.Fprintf(deps.out, "  %s\n", formatReviewLine(review)); err != nil {
			return err
		}
	}
	return nil
}
