package app

import (
	"context"
	"errors"

	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

var (
	ErrValidation       = errors.New("app: validation failed")
	ErrDuplicateName    = errors.New("app: duplicate name")
	ErrPermissionDenied = errors.New("app: permission denied")
	ErrAuthFailed       = errors.New("app: authentication failed")
	ErrAuthRequired     = errors.New("app: login required")
)

// AccessPolicy selects between single-user mode (movies unowned, no checks)
// and mandatory login.
type AccessPolicy struct {
	RequireLogin bool
}

type RegisterUserRequest struct {
	Username string `validate:"required,min=1,max=64"`
	Password []byte `validate:"required"`
}

type CreateCategoryRequest struct {
	Name string `validate:"required,max=128"`
}

type CreateMovieRequest struct {
	Title      string `validate:"required,max=256"`
	Director   string `validate:"required,max=256"`
	Genre      string `validate:"required,max=128"`
	CategoryID *int64 `validate:"omitempty,gt=0"`
	Watched    bool
}

// UpdateMovieRequest changes only the non-nil fields. ClearCategory detaches
// the movie from its category.
type UpdateMovieRequest struct {
	ID            int64   `validate:"gt=0"`
	Title         *string `validate:"omitempty,min=1,max=256"`
	Director      *string `validate:"omitempty,min=1,max=256"`
	Genre         *string `validate:"omitempty,min=1,max=128"`
	CategoryID    *int64  `validate:"omitempty,gt=0"`
	ClearCategory bool
}

type ListMoviesRequest struct {
	CategoryID *int64
	Watched    *bool
}

type CreateReviewRequest struct {
	MovieID int64   `validate:"gt=0"`
	Rating  float64 `validate:"gte=1,lte=5"`
	Comment string  `validate:"max=2000"`
}

type contextKey string

const actorContextKey contextKey = "app.actor"

// WithActor attaches the logged-in user to ctx. Services scope listings to
// the actor and reject changes to movies the actor does not own.
func WithActor(ctx context.Context, user *storage.User) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, actorContextKey, user)
}

func ActorFromContext(ctx context.Context) (*storage.User, bool) {
	user, ok := ctx.Value(actorContextKey).(*storage.User)
	return user, ok && user != nil
}
