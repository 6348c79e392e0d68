package app

import (
	"context"
	"fmt"

	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

func (p AccessPolicy) requireActor(ctx context.Context) error {
	if !p.RequireLogin {
		return nil
	}
	if _, ok := ActorFromContext(ctx); !ok {
		return ErrAuthRequired
	}
	return nil
}

// authorizeMovie lets an anonymous caller touch only unowned movies. With an
// actor the movie must be owned by them.
func authorizeMovie(ctx context.Context, movie *storage.Movie) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		if movie.UserID != nil {
			return fmt.Errorf("%w: movie %d belongs to a user; log in first", ErrPermissionDenied, movie.ID)
		}
		return nil
	}
	if movie.UserID == nil || *movie.UserID != actor.ID {
		return fmt.Errorf("%w: movie %d belongs to another user", ErrPermissionDenied, movie.ID)
	}
	return nil
}
