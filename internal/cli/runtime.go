package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/uvyne-rop/movie-watchlist/internal/app"
	"github.com/uvyne-rop/movie-watchlist/internal/config"
	"github.com/uvyne-rop/movie-watchlist/internal/crypto"
	logpkg "github.com/uvyne-rop/movie-watchlist/internal/log"
	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

var loadConfigFn = config.Load

// appRuntime is everything a command needs once config, logging, the store
// and the login session have been resolved.
type appRuntime struct {
	cfg         config.Config
	logger      *slog.Logger
	store       *storage.Store
	users       *app.UserService
	categories  *app.CategoryService
	movies      *app.MovieService
	reviews     *app.ReviewService
	actor       *storage.User
	sessionPath string
}

func withRuntime(cmdCtx context.Context, deps commandDeps, fn func(context.Context, *appRuntime) error) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	if deps.globals != nil && deps.globals.Timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(cmdCtx, deps.globals.Timeout)
		defer cancel()
	}

	cfg, _, err := loadConfigFn(buildLoadOptions(deps.globals))
	if err != nil {
		return mapCommandError(fmt.Errorf("load config: %w", err))
	}

	logger, logCloser, err := logpkg.New(logpkg.Options{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	})
	if err != nil {
		return mapCommandError(fmt.Errorf("init logger: %w", err))
	}
	defer logCloser.Close()

	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return mapCommandError(fmt.Errorf("open database: %w", err))
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("close database", "error", closeErr)
		}
	}()

	rt := newAppRuntime(cfg, logger, store)
	ctx, err := rt.resolveActor(cmdCtx)
	if err != nil {
		return mapCommandError(err)
	}
	return mapCommandError(fn(ctx, rt))
}

func newAppRuntime(cfg config.Config, logger *slog.Logger, store *storage.Store) *appRuntime {
	params := crypto.DefaultArgon2Params()
	params.Memory = uint32(cfg.Auth.Argon2MemoryKiB)
	params.Iterations = uint32(cfg.Auth.Argon2Iterations)
	policy := app.AccessPolicy{RequireLogin: cfg.Auth.RequireLogin}

	return &appRuntime{
		cfg:    cfg,
		logger: logger,
		store:  store,
		users: app.NewUserService(store.Users, store.Sessions, app.UserServiceOptions{
			Argon2:     params,
			SessionTTL: cfg.Auth.SessionTTL,
			Logger:     logger,
		}),
		categories:  app.NewCategoryService(store.Categories, policy, logger),
		movies:      app.NewMovieService(store.Movies, policy, logger),
		reviews:     app.NewReviewService(store.Reviews, store.Movies, policy, logger),
		sessionPath: cfg.SessionFilePath(),
	}
}

// resolveActor attaches the logged-in user, if any, to ctx. A stale session
// file is removed and the command continues without an actor.
func (rt *appRuntime) resolveActor(ctx context.Context) (context.Context, error) {
	token, err := readSessionToken(rt.sessionPath)
	if err != nil {
		return ctx, err
	}
	if token == "" {
		return ctx, nil
	}

	user, err := rt.users.Resolve(ctx, token)
	if err != nil {
		if !errors.Is(err, app.ErrAuthFailed) {
			return ctx, err
		}
		rt.logger.WarnContext(ctx, "discarding stale session", "error", err)
		if err := removeSessionToken(rt.sessionPath); err != nil {
			return ctx, err
		}
		return ctx, nil
	}
	rt.actor = user
	return app.WithActor(ctx, user), nil
}

func buildLoadOptions(globals *GlobalOptions) config.LoadOptions {
	opts := config.LoadOptions{}
	if globals == nil {
		return opts
	}
	opts.ConfigPath = strings.TrimSpace(globals.ConfigPath)
	opts.EnvFile = strings.TrimSpace(globals.EnvFile)
	if dbPath := strings.TrimSpace(globals.DBPath); dbPath != "" {
		opts.Flags.DBPath = &dbPath
	}
	if level := strings.TrimSpace(globals.LogLevel); level != "" {
		opts.Flags.LogLevel = &level
	}
	opts.Flags.RequireLogin = globals.RequireLogin
	return opts
}

func outputValue(w io.Writer, asJSON bool, value any) error {
	if asJSON {
		return printJSON(w, value)
	}
	_, err := fmt.Fprintln(w, value)
	return err
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func boolToState(v bool, yes, no string) string {
	if v {
		return yes
	}
	return no
}
