package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

type userView struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type categoryView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type movieView struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Director   string    `json:"director"`
	Genre      string    `json:"genre"`
	Watched    bool      `json:"watched"`
	CategoryID *int64    `json:"category_id"`
	UserID     *int64    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type reviewView struct {
	ID        int64     `json:"id"`
	MovieID   int64     `json:"movie_id"`
	Rating    float64   `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserView(user storage.User) userView {
	return userView{ID: user.ID, Username: user.Username, CreatedAt: user.CreatedAt}
}

func toCategoryView(category storage.Category) categoryView {
	return categoryView{ID: category.ID, Name: category.Name, CreatedAt: category.CreatedAt}
}

func toMovieView(movie storage.Movie) movieView {
	return movieView{
		ID:         movie.ID,
		Title:      movie.Title,
		Director:   movie.Director,
		Genre:      movie.Genre,
		Watched:    movie.Watched,
		CategoryID: movie.CategoryID,
		UserID:     movie.UserID,
		CreatedAt:  movie.CreatedAt,
		UpdatedAt:  movie.UpdatedAt,
	}
}

func toReviewView(review storage.Review) reviewView {
	return reviewView{
		ID:        review.ID,
		MovieID:   review.MovieID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	}
}

func movieViews(movies []storage.Movie) []movieView {
	out := make([]movieView, 0, len(movies))
	for _, movie := range movies {
		out = append(out, toMovieView(movie))
	}
	return out
}

func reviewViews(reviews []storage.Review) []reviewView {
	out := make([]reviewView, 0, len(reviews))
	for _, review := range reviews {
		out = append(out, toReviewView(review))
	}
	return out
}

func formatMovieLine(movie storage.Movie) string {
	category := "-"
	if movie.CategoryID != nil {
		category = strconv.FormatInt(*movie.CategoryID, 10)
	}
	return fmt.Sprintf(
		"%d [%s] %s (%s) genre=%s category=%s",
		movie.ID,
		boolToState(movie.Watched, "x", " "),
		movie.Title,
		movie.Director,
		movie.Genre,
		category,
	)
}

func formatReviewLine(review storage.Review) string {
	line := fmt.Sprintf("%d %s", review.ID, formatRating(review.Rating))
	if review.Comment != "" {
		line += " " + review.Comment
	}
	return line
}

func formatRating(rating float64) string {
	return strconv.FormatFloat(rating, 'f', -1, 64) + "/5"
}

func parseID(kind, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErrorf("invalid %s id %q: must be a positive integer", kind, raw)
	}
	return id, nil
}

func exactlyOneID(kind, usage string) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != 1 {
			return usageErrorf("%s requires exactly one %s id", usage, kind)
		}
		_, err := parseID(kind, args[0])
		return err
	}
}
