package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/uvyne-rop/movie-watchlist/internal/app"
	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

func newCategoryCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"categories"},
		Short:   "Movie categories",
	}
	cmd.AddCommand(
		newCategoryAddCommand(deps),
		newCategoryListCommand(deps),
		newCategoryShowCommand(deps),
		newCategoryRemoveCommand(deps),
	)
	return cmd
}

func newCategoryAddCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:     "add <name>",
		Short:   "Add a category",
		Example: "  watchlist category add \"Sci-Fi\"",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("category add requires exactly one name")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				category, err := rt.categories.Create(ctx, app.CreateCategoryRequest{Name: args[0]})
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, toCategoryView(*category))
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err = fmt.Fprintf(deps.out, "category added: %s (id %d)\n", category.Name, category.ID)
				return err
			})
		},
	}
}

func newCategoryListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("category ls does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				categories, err := rt.categories.List(ctx)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					views := make([]categoryView, 0, len(categories))
					for _, category := range categories {
						views = append(views, toCategoryView(category))
					}
					return printJSON(deps.out, views)
				}
				if deps.globals.Quiet {
					return nil
				}
				for _, category := range categories {
					if _, err := fmt.Fprintf(deps.out, "%d %s\n", category.ID, category.Name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newCategoryShowCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <category>",
		Short: "Show a category and the movies in it",
		Long: "Show a category, given by id or name, and the movies in it.\n" +
			"A number is read as an id first; write name:1984 to look up a category named 1984.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("category show requires exactly one category id or name")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				category, err := lookupCategory(ctx, rt, args[0])
				if err != nil {
					return err
				}
				movies, err := rt.movies.ListByCategory(ctx, category.ID)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{
						"category": toCategoryView(*category),
						"movies":   movieViews(movies),
					})
				}
				if deps.globals.Quiet {
					return nil
				}
				if _, err := fmt.Fprintf(deps.out, "%d %s (%d movies)\n", category.ID, category.Name, len(movies)); err != nil {
					return err
				}
				for _, movie := range movies {
					if _, err := fmt.Fprintf(deps.out, "  %s\n", formatMovieLine(movie)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newCategoryRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <category-id>",
		Short: "Delete a category; its movies are kept without a category",
		Args:  exactlyOneID("category", "category rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID("category", args[0])
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				removed, err := rt.categories.Delete(ctx, id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("category %d: %w", id, storage.ErrNotFound)
				}
				return printRemoved(deps, "category", id)
			})
		},
	}
}

// categoryNamePrefix forces a name lookup, for names that are all digits.
const categoryNamePrefix = "name:"

// lookupCategory accepts a numeric id, an exact category name, or
// "name:<name>". A bare number is tried as an id before it is tried as a name.
func lookupCategory(ctx context.Context, rt *appRuntime, ref string) (*storage.Category, error) {
	ref = strings.TrimSpace(ref)
	byName := strings.HasPrefix(ref, categoryNamePrefix)
	if byName {
		ref = strings.TrimSpace(strings.TrimPrefix(ref, categoryNamePrefix))
	}
	if ref == "" {
		return nil, usageErrorf("category must not be empty")
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil && !byName {
		category, err := rt.categories.Get(ctx, id)
		if err == nil || !errors.Is(err, storage.ErrNotFound) {
			return category, err
		}
	}
	category, err := rt.categories.GetByName(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("category %q: %w", ref, err)
	}
	return category, nil
}
