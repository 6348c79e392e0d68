package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("storage: not found")
	ErrInvalidReference = errors.New("storage: referenced record does not exist")
	ErrSchemaTooNew     = errors.New("storage: schema version newer than code")
)

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Movie is a watchlist entry. CategoryID is an associative reference and
// UserID an owning one; nil means no reference.
type Movie struct {
	ID         int64
	Title      string
	Director   string
	Genre      string
	Watched    bool
	CategoryID *int64
	UserID     *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MovieFilter narrows List. Unowned keeps only movies with no user and is
// ignored when UserID is set.
type MovieFilter struct {
	UserID     *int64
	Unowned    bool
	CategoryID *int64
	Watched    *bool
}

type Review struct {
	ID        int64
	MovieID   int64
	Rating    float64
	Comment   string
	CreatedAt time.Time
}

type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	Get(ctx context.Context, id int64) (*Category, error)
	GetByName(ctx context.Context, name string) (*Category, error)
	List(ctx context.Context) ([]Category, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type MovieRepository interface {
	Create(ctx context.Context, movie *Movie) error
	Get(ctx context.Context, id int64) (*Movie, error)
	List(ctx context.Context, filter MovieFilter) ([]Movie, error)
	Update(ctx context.Context, movie *Movie) error
	SetWatched(ctx context.Context, id int64, watched bool) (*Movie, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *Review) error
	Get(ctx context.Context, id int64) (*Review, error)
	ListByMovie(ctx context.Context, movieID int64) ([]Review, error)
	AverageRating(ctx context.Context, movieID int64) (float64, int, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
