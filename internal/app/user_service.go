package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/uvyne-rop/movie-watchlist/internal/crypto"
	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

const DefaultSessionTTL = 30 * 24 * time.Hour

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

type UserServiceOptions struct {
	Argon2     crypto.Argon2Params
	SessionTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

type UserService struct {
	users      storage.UserRepository
	sessions   storage.SessionRepository
	params     crypto.Argon2Params
	sessionTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

func NewUserService(users storage.UserRepository, sessions storage.SessionRepository, opts UserServiceOptions) *UserService {
	if opts.Argon2 == (crypto.Argon2Params{}) {
		opts.Argon2 = crypto.DefaultArgon2Params()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &UserService{
		users:      users,
		sessions:   sessions,
		params:     opts.Argon2,
		sessionTTL: opts.SessionTTL,
		logger:     loggerOrDiscard(opts.Logger),
		now:        opts.Now,
	}
}

// Register stores a new user with an argon2id hash of the password. The
// store's unique constraint decides duplicates; the lookup before the insert
// only produces the same error earlier.
func (s *UserService) Register(ctx context.Context, req RegisterUserRequest) (*storage.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if len(req.Password) == 0 {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}
	if !usernamePattern.MatchString(req.Username) {
		return nil, fmt.Errorf("%w: username format is invalid", ErrValidation)
	}

	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, req.Username)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("register user: %w", err)
	}

	hash, err := crypto.HashPassword(req.Password, s.params)
	if err != nil {
		return nil, fmt.Errorf("register user: hash password: %w", err)
	}

	user := &storage.User{Username: req.Username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, req.Username)
		}
		return nil, fmt.Errorf("register user: %w", err)
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*storage.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) FindByUsername(ctx context.Context, username string) (*storage.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]storage.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Authenticate reports ErrAuthFailed for both an unknown username and a wrong
// password.
func (s *UserService) Authenticate(ctx context.Context, username string, password []byte) (*storage.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) == 0 {
		return nil, ErrAuthFailed
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAuthFailed
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	ok, err := crypto.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !ok {
		s.logger.WarnContext(ctx, "authentication failed", "username", username)
		return nil, ErrAuthFailed
	}
	return user, nil
}

// Login authenticates and opens a session that expires after the configured
// TTL. Expired sessions of any user are swept first.
func (s *UserService) Login(ctx context.Context, username string, password []byte) (*storage.Session, *storage.User, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	if _, err := s.sessions.DeleteExpired(ctx, now); err != nil {
		return nil, nil, fmt.Errorf("login: %w", err)
	}

	session := &storage.Session{
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("login: %w", err)
	}
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "expires_at", session.ExpiresAt)
	return session, user, nil
}

func (s *UserService) Logout(ctx context.Context, token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}
	ok, err := s.sessions.Delete(ctx, token)
	if err != nil {
		return false, fmt.Errorf("logout: %w", err)
	}
	return ok, nil
}

// Resolve maps a session token to its user. Unknown and expired tokens are
// ErrAuthFailed; an expired session is removed.
func (s *UserService) Resolve(ctx context.Context, token string) (*storage.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrAuthFailed
	}

	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAuthFailed
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if !s.now().Before(session.ExpiresAt) {
		if _, err := s.sessions.Delete(ctx, token); err != nil {
			return nil, fmt.Errorf("resolve session: drop expired: %w", err)
		}
		return nil, fmt.Errorf("%w: session expired", ErrAuthFailed)
	}

	user, err := s.users.Get(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAuthFailed
		}
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return user, nil
}

// Delete removes the user together with their movies, reviews of those
// movies, and sessions. Only the user themselves may do so; without an actor
// a missing id is (false, nil) and an existing one is refused.
func (s *UserService) Delete(ctx context.Context, id int64) (bool, error) {
	actor, ok := ActorFromContext(ctx)
	if ok && actor.ID != id {
		return false, fmt.Errorf("%w: cannot delete another user", ErrPermissionDenied)
	}
	if !ok {
		if _, err := s.users.Get(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("delete user: %w", err)
		}
		return false, fmt.Errorf("%w: log in as user %d to delete the account", ErrPermissionDenied, id)
	}
	ok, err := s.users.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	if ok {
		s.logger.InfoContext(ctx, "user deleted", "user_id", id)
	}
	return ok, nil
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
