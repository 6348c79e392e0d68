package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestModelInitLoadsMoviesAndCategories(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	model := NewModel(Options{Client: client})
	require.Equal(t, ScreenMovies, model.screen)

	cmd := model.Init()
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, loadedMsg{}, msg)

	next, _ := model.Update(msg)
	state := next.(Model)
	require.Len(t, state.moviesList.Items(), 2)
	require.Len(t, state.categoriesList.Items(), 1)
	require.Contains(t, state.View(), "Dune")
}

func TestModelShowsEmptyState(t *testing.T) {
	t.Parallel()

	model := loadedModel(t, &fakeClient{})
	require.Contains(t, model.View(), "No movies yet.")

	model.screen = ScreenCategories
	require.Contains(t, model.View(), "No categories yet.")
}

func TestToggleWatchedCallsClientAndReloads(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	model := loadedModel(t, client)

	next, cmd := model.Update(keyRunes("w"))
	require.NotNil(t, cmd)
	msg := cmd()
	require.Equal(t, actionMsg{status: `Marked "Dune" watched`}, msg)
	require.True(t, client.movies[0].Watched)

	after, reload := next.(Model).Update(msg)
	require.NotNil(t, reload)
	require.Contains(t, after.(Model).View(), `Marked "Dune" watched`)

	reloaded, _ := after.(Model).Update(reload())
	require.Contains(t, reloaded.(Model).View(), "[x]")
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	model := loadedModel(t, client)

	next, _ := model.Update(keyRunes("d"))
	state := next.(Model)
	require.Equal(t, ScreenConfirm, state.screen)
	require.Contains(t, state.View(), `Delete "Dune" and all of its reviews?`)

	cancelled, cmd := state.Update(keyRunes("n"))
	require.Nil(t, cmd)
	require.Equal(t, ScreenMovies, cancelled.(Model).screen)
	require.Empty(t, client.deleted)

	next, _ = cancelled.(Model).Update(keyRunes("d"))
	confirmed, cmd := next.(Model).Update(keyRunes("y"))
	require.NotNil(t, cmd)
	require.Equal(t, ScreenMovies, confirmed.(Model).screen)
	cmd()
	require.Equal(t, []int64{1}, client.deleted)
}

func TestAddMovieFormSubmitsTrimmedValues(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	model := loadedModel(t, client)

	next, _ := model.Update(keyRunes("a"))
	state := next.(Model)
	require.Equal(t, ScreenMovieForm, state.screen)

	state.movieInputs[0].SetValue("  Arrival ")
	state.movieInputs[1].SetValue("Villeneuve")
	state.movieInputs[2].SetValue("Sci-Fi")

	submitted, cmd := state.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.Equal(t, ScreenMovies, submitted.(Model).screen)
	msg := cmd()
	require.Equal(t, actionMsg{status: `Added "Arrival"`}, msg)
	require.Equal(t, MovieInput{Title: "Arrival", Director: "Villeneuve", Genre: "Sci-Fi"}, client.added[0])
}

func TestFormKeepsQAsInput(t *testing.T) {
	t.Parallel()

	model := loadedModel(t, newFakeClient())
	next, _ := model.Update(keyRunes("a"))
	typed, _ := next.(Model).Update(keyRunes("q"))
	state := typed.(Model)
	require.Equal(t, ScreenMovieForm, state.screen)
	require.Equal(t, "q", state.movieInputs[0].Value())
}

func TestReviewFormRejectsNonNumericRatingLocally(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	model := loadedModel(t, client)

	next, _ := model.Update(keyRunes("r"))
	state := next.(Model)
	require.Equal(t, ScreenReviewForm, state.screen)

	state.reviewInputs[0].SetValue("great")
	after, cmd := state.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
	require.Contains(t, after.(Model).View(), "rating must be a number")
	require.Empty(t, client.reviews)
}

func TestReviewFormSurfacesClientValidationError(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	model := loadedModel(t, client)

	next, _ := model.Update(keyRunes("r"))
	state := next.(Model)
	state.reviewInputs[0].SetValue("6")

	after, cmd := state.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	final, _ := after.(Model).Update(cmd())
	require.Contains(t, final.(Model).View(), "rating must be between 1 and 5")
}

func TestMovieDetailShowsReviews(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.reviews[1] = []Review{{ID: 1, Rating: 4.5, Comment: "sandworms"}}
	model := loadedModel(t, client)

	next, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	state := next.(Model)
	require.Equal(t, ScreenMovieDetail, state.screen)

	loaded, _ := state.Update(cmd())
	view := loaded.(Model).View()
	require.Contains(t, view, "Villeneuve")
	require.Contains(t, view, "sandworms")
	require.Contains(t, view, "4.5")

	back, _ := loaded.(Model).Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, ScreenMovies, back.(Model).screen)
}

func TestCategoryEnterFiltersMovies(t *testing.T) {
	t.Parallel()

	model := loadedModel(t, newFakeClient())

	next, _ := model.Update(keyRunes("c"))
	state := next.(Model)
	require.Equal(t, ScreenCategories, state.screen)

	filtered, _ := state.Update(tea.KeyMsg{Type: tea.KeyEnter})
	fstate := filtered.(Model)
	require.Equal(t, ScreenMovies, fstate.screen)
	require.Len(t, fstate.moviesList.Items(), 1)

	all, _ := fstate.Update(keyRunes("m"))
	require.Len(t, all.(Model).moviesList.Items(), 2)
}

func TestLoadErrorIsShown(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.listErr = errors.New("database is locked")
	model := NewModel(Options{Client: client})

	next, _ := model.Update(model.Init()())
	require.Contains(t, next.(Model).View(), "database is locked")
}

func loadedModel(t *testing.T, client *fakeClient) Model {
	t.Helper()
	model := NewModel(Options{Client: client})
	next, _ := model.Update(model.Init()())
	return next.(Model)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

type fakeClient struct {
	movies     []Movie
	categories []Category
	reviews    map[int64][]Review
	added      []MovieInput
	deleted    []int64
	listErr    error
}

func newFakeClient() *fakeClient {
	scifi := int64(1)
	return &fakeClient{
		movies: []Movie{
			{ID: 1, Title: "Dune", Director: "Villeneuve", Genre: "Sci-Fi", CategoryID: &scifi, Category: "Sci-Fi"},
			{ID: 2, Title: "Heat", Director: "Mann", Genre: "Crime"},
		},
		categories: []Category{{ID: 1, Name: "Sci-Fi"}},
		reviews:    map[int64][]Review{},
	}
}

func (f *fakeClient) ListMovies(context.Context) ([]Movie, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Movie(nil), f.movies...), nil
}

func (f *fakeClient) ListCategories(context.Context) ([]Category, error) {
	return append([]Category(nil), f.categories...), nil
}

func (f *fakeClient) ListReviews(_ context.Context, movieID int64) ([]Review, error) {
	return append([]Review(nil), f.reviews[movieID]...), nil
}

func (f *fakeClient) AddMovie(_ context.Context, input MovieInput) (Movie, error) {
	f.added = append(f.added, input)
	movie := Movie{ID: int64(len(f.movies) + 1), Title: input.Title, Director: input.Director, Genre: input.Genre}
	f.movies = append(f.movies, movie)
	return movie, nil
}

func (f *fakeClient) SetWatched(_ context.Context, movieID int64, watched bool) error {
	for i := range f.movies {
		if f.movies[i].ID == movieID {
			f.movies[i].Watched = watched
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeClient) DeleteMovie(_ context.Context, movieID int64) error {
	f.deleted = append(f.deleted, movieID)
	return nil
}

func (f *fakeClient) AddReview(_ context.Context, movieID int64, rating float64, comment string) error {
	if rating < 1 || rating > 5 {
		return errors.New("rating must be between 1 and 5")
	}
	f.reviews[movieID] = append(f.reviews[movieID], Review{ID: int64(len(f.reviews[movieID]) + 1), Rating: rating, Comment: comment})
	return nil
}
