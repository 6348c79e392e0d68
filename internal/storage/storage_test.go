package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestRunMigrationsAppliesAllSequentially(t *testing.T) {
	t.Parallel()

	db := openRawTestDB(t)
	defer closeNoErr(t, db)

	err := RunMigrations(db, DefaultMigrations())
	require.NoError(t, err)

	require.Equal(t, CurrentSchemaVersion(), mustSchemaVersion(t, db))

	expected := []string{
		"watchlist_meta",
		"schema_migrations",
		"users",
		"categories",
		"movies",
		"reviews",
		"sessions",
	}
	for _, table := range expected {
		require.Truef(t, tableExists(t, db, table), "expected table %s to exist", table)
	}
}

func TestRunMigrationsIsAtomic(t *testing.T) {
	t.Parallel()

	db := openRawTestDB(t)
	defer closeNoErr(t, db)

	migrations := []Migration{
		{
			Version:     1,
			Description: "create a",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`CREATE TABLE test_a (id INTEGER PRIMARY KEY)`)
				return err
			},
		},
		{
			Version:     2,
			Description: "create b then fail",
			Up: func(tx *sql.Tx) error {
				if _, err := tx.Exec(`CREATE TABLE test_b (id INTEGER PRIMARY KEY)`); err != nil {
					return err
				}
				return errors.New("boom")
			},
		},
	}

	err := RunMigrations(db, migrations)
	require.Error(t, err)
	require.Equal(t, 1, mustSchemaVersion(t, db))
	require.True(t, tableExists(t, db, "test_a"))
	require.False(t, tableExists(t, db, "test_b"))
}

func TestOpenRefusesNewerSchemaVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "watchlist.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db, DefaultMigrations()))
	_, err = db.Exec(`UPDATE watchlist_meta SET value = ? WHERE key = 'schema_version'`, CurrentSchemaVersion()+1)
	require.NoError(t, err)
	closeNoErr(t, db)

	store, err := Open(path)
	if store != nil {
		t.Cleanup(func() { _ = store.Close() })
	}
	require.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestOpenCreatesFileAndParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "watchlist.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer closeStoreNoErr(t, store)

	_, err = os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, path, store.Path())
}

func TestOpenIsIdempotentAcrossRestarts(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "watchlist.db")
	store, err := Open(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Categories.Create(ctx, &Category{Name: "Drama"}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer closeStoreNoErr(t, reopened)

	items, err := reopened.Categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Drama", items[0].Name)
}

func TestMovieCreateThenGetReturnsSuppliedFields(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	category := &Category{Name: "Sci-Fi"}
	require.NoError(t, store.Categories.Create(ctx, category))

	movie := &Movie{Title: "Dune", Director: "Villeneuve", Genre: "Sci-Fi", CategoryID: &category.ID}
	require.NoError(t, store.Movies.Create(ctx, movie))
	require.NotZero(t, movie.ID)

	loaded, err := store.Movies.Get(ctx, movie.ID)
	require.NoError(t, err)
	require.Equal(t, "Dune", loaded.Title)
	require.Equal(t, "Villeneuve", loaded.Director)
	require.Equal(t, "Sci-Fi", loaded.Genre)
	require.False(t, loaded.Watched)
	require.NotNil(t, loaded.CategoryID)
	require.Equal(t, category.ID, *loaded.CategoryID)
	require.Nil(t, loaded.UserID)
	require.True(t, movie.CreatedAt.Equal(loaded.CreatedAt))

	other := &Movie{Title: "Heat", Director: "Mann", Genre: "Crime"}
	require.NoError(t, store.Movies.Create(ctx, other))
	require.NotEqual(t, movie.ID, other.ID)
}

func TestMovieCreateRejectsMissingReferences(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	missing := int64(42)
	err := store.Movies.Create(ctx, &Movie{Title: "Dune", Director: "Villeneuve", Genre: "Sci-Fi", CategoryID: &missing})
	require.ErrorIs(t, err, ErrInvalidReference)

	err = store.Movies.Create(ctx, &Movie{Title: "Dune", Director: "Villeneuve", Genre: "Sci-Fi", UserID: &missing})
	require.ErrorIs(t, err, ErrInvalidReference)

	movies, err := store.Movies.List(ctx, MovieFilter{})
	require.NoError(t, err)
	require.Empty(t, movies)
}

func TestMovieGetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.Movies.Get(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMissingIDReturnsFalseWithoutSideEffects(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	movie := &Movie{Title: "Alien", Director: "Scott", Genre: "Horror"}
	require.NoError(t, store.Movies.Create(ctx, movie))

	ok, err := store.Movies.Delete(ctx, movie.ID+100)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = store.Movies.Delete(ctx, movie.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Movies.Delete(ctx, movie.ID)
	require.NoError(t, err)
	require.False(t, ok)

	for _, del := range []func(context.Context, int64) (bool, error){
		store.Categories.Delete,
		store.Reviews.Delete,
		store.Users.Delete,
	} {
		ok, err := del(ctx, 12345)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestMovieSetWatchedToggles(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	movie := &Movie{Title: "Arrival", Director: "Villeneuve", Genre: "Sci-Fi"}
	require.NoError(t, store.Movies.Create(ctx, movie))

	updated, err := store.Movies.SetWatched(ctx, movie.ID, true)
	require.NoError(t, err)
	require.True(t, updated.Watched)

	updated, err = store.Movies.SetWatched(ctx, movie.ID, true)
	require.NoError(t, err)
	require.True(t, updated.Watched)

	updated, err = store.Movies.SetWatched(ctx, movie.ID, false)
	require.NoError(t, err)
	require.False(t, updated.Watched)

	loaded, err := store.Movies.Get(ctx, movie.ID)
	require.NoError(t, err)
	require.False(t, loaded.Watched)

	_, err = store.Movies.SetWatched(ctx, movie.ID+1, true)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMovieDeleteCascadesReviews(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	movie := &Movie{Title: "Dune", Director: "Villeneuve", Genre: "Sci-Fi"}
	keep := &Movie{Title: "Heat", Director: "Mann", Genre: "Crime"}
	require.NoError(t, store.Movies.Create(ctx, movie))
	require.NoError(t, store.Movies.Create(ctx, keep))

	r1 := &Review{MovieID: movie.ID, Rating: 5, Comment: "spice"}
	r2 := &Review{MovieID: movie.ID, Rating: 3.5}
	r3 := &Review{MovieID: keep.ID, Rating: 4}
	for _, review := range []*Review{r1, r2, r3} {
		require.NoError(t, store.Reviews.Create(ctx, review))
	}

	ok, err := store.Movies.Delete(ctx, movie.ID)
	require.NoError(t, err)
	require.True(t, ok)

	for _, id := range []int64{r1.ID, r2.ID} {
		_, err := store.Reviews.Get(ctx, id)
		require.ErrorIs(t, err, ErrNotFound)
	}
	kept, err := store.Reviews.Get(ctx, r3.ID)
	require.NoError(t, err)
	require.Equal(t, keep.ID, kept.MovieID)
}

func TestReviewCreateRejectsMissingMovie(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	err := store.Reviews.Create(ctx, &Review{MovieID: 77, Rating: 4})
	require.ErrorIs(t, err, ErrInvalidReference)

	var count int
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(1) FROM reviews`).Scan(&count))
	require.Zero(t, count)
}

func TestReviewRatingCheckConstraint(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	movie := &Movie{Title: "Dune", Director: "Villeneuve", Genre: "Sci-Fi"}
	require.NoError(t, store.Movies.Create(ctx, movie))

	for _, rating := range []float64{1.0, 5.0, 2.5} {
		require.NoError(t, store.Reviews.Create(ctx, &Review{MovieID: movie.ID, Rating: rating}))
	}
	for _, rating := range []float64{0.9, 0.999, 5.001, 5.1} {
		require.Errorf(t, store.Reviews.Create(ctx, &Review{MovieID: movie.ID, Rating: rating}), "rating %v", rating)
	}

	reviews, err := store.Reviews.ListByMovie(ctx, movie.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	require.Empty(t, reviews[0].Comment)

	avg, count, err := store.Reviews.AverageRating(ctx, movie.ID)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.InDelta(t, 2.8333, avg, 0.001)
}

func TestMovieListByCategoryExcludesOthersAndUncategorized(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	scifi := &Category{Name: "Sci-Fi"}
	drama := &Category{Name: "Drama"}
	require.NoError(t, store.Categories.Create(ctx, scifi))
	require.NoError(t, store.Categories.Create(ctx, drama))

	dune := &Movie{Title: "Dune", Director: "Villeneuve", Genre: "Sci-Fi", CategoryID: &scifi.ID}
	alien := &Movie{Title: "Alien", Director: "Scott", Genre: "Sci-Fi", CategoryID: &scifi.ID}
	moonlight := &Movie{Title: "Moonlight", Director: "Jenkins", Genre: "Drama", CategoryID: &drama.ID}
	loose := &Movie{Title: "Heat", Director: "Mann", Genre: "Crime"}
	for _, m := range []*Movie{dune, alien, moonlight, loose} {
		require.NoError(t, store.Movies.Create(ctx, m))
	}

	movies, err := store.Movies.List(ctx, MovieFilter{CategoryID: &scifi.ID})
	require.NoError(t, err)
	require.Len(t, movies, 2)
	require.Equal(t, dune.ID, movies[0].ID)
	require.Equal(t, alien.ID, movies[1].ID)

	watched := true
	_, err = store.Movies.SetWatched(ctx, alien.ID, true)
	require.NoError(t, err)
	movies, err = store.Movies.List(ctx, MovieFilter{CategoryID: &scifi.ID, Watched: &watched})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	require.Equal(t, alien.ID, movies[0].ID)
}

func TestCategoryDeleteDetachesMovies(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	category := &Category{Name: "Sci-Fi"}
	require.NoError(t, store.Categories.Create(ctx, category))
	movie := &Movie{Title: "Dune", Director: "Villeneuve", Genre: "Sci-Fi", CategoryID: &category.ID}
	require.NoError(t, store.Movies.Create(ctx, movie))

	movies, err := store.Movies.List(ctx, MovieFilter{CategoryID: &category.ID})
	require.NoError(t, err)
	require.Len(t, movies, 1)

	ok, err := store.Categories.Delete(ctx, category.ID)
	require.NoError(t, err)
	require.True(t, ok)

	loaded, err := store.Movies.Get(ctx, movie.ID)
	require.NoError(t, err)
	require.Nil(t, loaded.CategoryID)

	_, err = store.Categories.Get(ctx, category.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCategoryNameIsUnique(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Categories.Create(ctx, &Category{Name: "Comedy"}))
	err := store.Categories.Create(ctx, &Category{Name: "Comedy"})
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err))

	missing := int64(404)
	err = store.Movies.Create(ctx, &Movie{Title: "Dune", Director: "Villeneuve", Genre: "Sci-Fi", CategoryID: &missing})
	require.ErrorIs(t, err, ErrInvalidReference)
	require.False(t, IsUniqueViolation(err))
	require.False(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: categories.name")))

	loaded, err := store.Categories.GetByName(ctx, "Comedy")
	require.NoError(t, err)
	require.Equal(t, "Comedy", loaded.Name)
}

func TestUserDeleteCascadesMoviesReviewsAndSessions(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	owner := &User{Username: "ada", PasswordHash: "hash"}
	other := &User{Username: "grace", PasswordHash: "hash"}
	require.NoError(t, store.Users.Create(ctx, owner))
	require.NoError(t, store.Users.Create(ctx, other))

	owned := &Movie{Title: "Dune", Director: "Villeneuve", Genre: "Sci-Fi", UserID: &owner.ID}
	foreign := &Movie{Title: "Heat", Director: "Mann", Genre: "Crime", UserID: &other.ID}
	require.NoError(t, store.Movies.Create(ctx, owned))
	require.NoError(t, store.Movies.Create(ctx, foreign))
	review := &Review{MovieID: owned.ID, Rating: 4}
	require.NoError(t, store.Reviews.Create(ctx, review))
	session := &Session{UserID: owner.ID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, store.Sessions.Create(ctx, session))

	ok, err := store.Users.Delete(ctx, owner.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = store.Movies.Get(ctx, owned.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Reviews.Get(ctx, review.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Sessions.Get(ctx, session.Token)
	require.ErrorIs(t, err, ErrNotFound)

	remaining, err := store.Movies.List(ctx, MovieFilter{UserID: &other.ID})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}

func TestMovieListUnownedSkipsUserMovies(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	owner := &User{Username: "ada", PasswordHash: "hash"}
	require.NoError(t, store.Users.Create(ctx, owner))
	owned := &Movie{Title: "Dune", Director: "Villeneuve", Genre: "Sci-Fi", UserID: &owner.ID}
	shared := &Movie{Title: "Heat", Director: "Mann", Genre: "Crime"}
	require.NoError(t, store.Movies.Create(ctx, owned))
	require.NoError(t, store.Movies.Create(ctx, shared))

	movies, err := store.Movies.List(ctx, MovieFilter{Unowned: true})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	require.Equal(t, shared.ID, movies[0].ID)

	movies, err = store.Movies.List(ctx, MovieFilter{UserID: &owner.ID, Unowned: true})
	require.NoError(t, err)
	require.Len(t, movies, 1)
	require.Equal(t, owned.ID, movies[0].ID)
}

func TestMovieUpdateChangesFieldsAndChecksCategory(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	movie := &Movie{Title: "Dnue", Director: "Villeneuve", Genre: "Sci-Fi"}
	require.NoError(t, store.Movies.Create(ctx, movie))
	before := movie.UpdatedAt

	time.Sleep(5 * time.Millisecond)
	movie.Title = "Dune"
	require.NoError(t, store.Movies.Update(ctx, movie))
	require.True(t, movie.UpdatedAt.After(before))

	loaded, err := store.Movies.Get(ctx, movie.ID)
	require.NoError(t, err)
	require.Equal(t, "Dune", loaded.Title)

	missing := int64(9)
	loaded.CategoryID = &missing
	require.ErrorIs(t, store.Movies.Update(ctx, loaded), ErrInvalidReference)

	ghost := &Movie{ID: movie.ID + 50, Title: "x", Director: "y", Genre: "z"}
	require.ErrorIs(t, store.Movies.Update(ctx, ghost), ErrNotFound)
}

func TestSessionCreateGetAndExpire(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	user := &User{Username: "ada", PasswordHash: "hash"}
	require.NoError(t, store.Users.Create(ctx, user))

	now := time.Now().UTC()
	live := &Session{UserID: user.ID, ExpiresAt: now.Add(time.Hour)}
	stale := &Session{UserID: user.ID, ExpiresAt: now.Add(-time.Minute)}
	require.NoError(t, store.Sessions.Create(ctx, live))
	require.NoError(t, store.Sessions.Create(ctx, stale))
	require.NotEmpty(t, live.Token)
	require.NotEqual(t, live.Token, stale.Token)

	loaded, err := store.Sessions.Get(ctx, live.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, loaded.UserID)

	removed, err := store.Sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	ok, err := store.Sessions.Delete(ctx, live.Token)
	require.NoError(t, err)
	require.True(t, ok)

	err = store.Sessions.Create(ctx, &Session{UserID: user.ID + 10, ExpiresAt: now.Add(time.Hour)})
	require.ErrorIs(t, err, ErrInvalidReference)
}

func TestConcurrentReadsWhileWrite(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	movie := &Movie{Title: "Race", Director: "Hopkins", Genre: "Drama"}
	require.NoError(t, store.Movies.Create(ctx, movie))

	const readers = 8
	errCh := make(chan error, readers+1)
	var wg sync.WaitGroup

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := store.Movies.List(ctx, MovieFilter{}); err != nil {
					errCh <- err
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := store.Movies.SetWatched(ctx, movie.ID, i%2 == 0); err != nil {
				errCh <- fmt.Errorf("toggle %d: %w", i, err)
				return
			}
		}
	}()

	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}
}

func TestDBFilePermissions0600OnUnix(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("permissions assertion is unix-specific")
	}

	path := filepath.Join(t.TempDir(), "watchlist.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer closeStoreNoErr(t, store)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func openRawTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "watchlist.db"))
	require.NoError(t, err)
	return db
}

func mustSchemaVersion(t *testing.T, db *sql.DB) int {
	t.Helper()
	var version int
	err := db.QueryRow(`SELECT value FROM watchlist_meta WHERE key = 'schema_version'`).Scan(&version)
	require.NoError(t, err)
	return version
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	t.Helper()
	var count int
	err := db.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "watchlist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { closeStoreNoErr(t, store) })
	return store
}

func closeStoreNoErr(t *testing.T, store *Store) {
	t.Helper()
	require.NoError(t, store.Close())
}

func closeNoErr(t *testing.T, db *sql.DB) {
	t.Helper()
	require.NoError(t, db.Close())
}
