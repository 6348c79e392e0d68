package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uvyne-rop/movie-watchlist/internal/app"
	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

func newReviewCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "review",
		Aliases: []string{"reviews"},
		Short:   "Movie reviews",
	}
	cmd.AddCommand(
		newReviewAddCommand(deps),
		newReviewListCommand(deps),
		newReviewRemoveCommand(deps),
	)
	return cmd
}

func newReviewAddCommand(deps commandDeps) *cobra.Command {
	var (
		rating  float64
		comment string
	)

	cmd := &cobra.Command{
		Use:   "add <movie-id>",
		Short: "Review a movie with a rating from 1 to 5",
		Example: "  watchlist review add 3 --rating 4.5\n" +
			"  watchlist review add 3 --rating 2 --comment \"too long\"",
		Args: exactlyOneID("movie", "review add"),
		RunE: func(cmd *cobra.Command, args []string) error {
			movieID, _ := parseID("movie", args[0])
			if !cmd.Flags().Changed("rating") {
				return usageErrorf("review add requires --rating")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				review, err := rt.reviews.Create(ctx, app.CreateReviewRequest{
					MovieID: movieID,
					Rating:  rating,
					Comment: comment,
				})
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, toReviewView(*review))
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err = fmt.Fprintf(deps.out, "review added: %d for movie %d (%s)\n", review.ID, review.MovieID, formatRating(review.Rating))
				return err
			})
		},
	}
	cmd.Flags().Float64Var(&rating, "rating", 0, "Rating between 1 and 5")
	cmd.Flags().StringVar(&comment, "comment", "", "Optional comment")
	return cmd
}

func newReviewListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "ls <movie-id>",
		Short: "List the reviews of a movie",
		Args:  exactlyOneID("movie", "review ls"),
		RunE: func(cmd *cobra.Command, args []string) error {
			movieID, _ := parseID("movie", args[0])
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				reviews, err := rt.reviews.ListByMovie(ctx, movieID)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, reviewViews(reviews))
				}
				if deps.globals.Quiet {
					return nil
				}
				for _, review := range reviews {
					if _, err := fmt.Fprintln(deps.out, formatReviewLine(review)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newReviewRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <review-id>",
		Short: "Delete a review",
		Args:  exactlyOneID("review", "review rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID("review", args[0])
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				removed, err := rt.reviews.Delete(ctx, id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("review %d: %w", id, storage.ErrNotFound)
				}
				return printRemoved(deps, "review", id)
			})
		},
	}
}
