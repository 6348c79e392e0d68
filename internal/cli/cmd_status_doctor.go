package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uvyne-rop/movie-watchlist/internal/app"
	"github.com/uvyne-rop/movie-watchlist/internal/config"
	debugpkg "github.com/uvyne-rop/movie-watchlist/internal/debug"
	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

type watchlistStatus struct {
	DBPath        string `json:"db_path"`
	SchemaVersion int    `json:"schema_version"`
	RequireLogin  bool   `json:"require_login"`
	LoggedInAs    string `json:"logged_in_as,omitempty"`
	Movies        int    `json:"movies"`
	Watched       int    `json:"watched"`
	Categories    int    `json:"categories"`
}

func newStatusCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show database, login and watchlist totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("status does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				version, err := rt.store.SchemaVersion()
				if err != nil {
					return err
				}
				status := watchlistStatus{
					DBPath:        rt.store.Path(),
					SchemaVersion: version,
					RequireLogin:  rt.cfg.Auth.RequireLogin,
				}
				if rt.actor != nil {
					status.LoggedInAs = rt.actor.Username
				}

				// Totals are only meaningful to someone allowed to list.
				if !rt.cfg.Auth.RequireLogin || rt.actor != nil {
					movies, err := rt.movies.List(ctx, app.ListMoviesRequest{})
					if err != nil {
						return err
					}
					status.Movies = len(movies)
					for _, movie := range movies {
						if movie.Watched {
							status.Watched++
						}
					}
					categories, err := rt.categories.List(ctx)
					if err != nil {
						return err
					}
					status.Categories = len(categories)
				}

				if deps.globals.JSON {
					return printJSON(deps.out, status)
				}
				if deps.globals.Quiet {
					return nil
				}
				login := "-"
				if status.LoggedInAs != "" {
					login = status.LoggedInAs
				}
				_, err = fmt.Fprintf(
					deps.out,
					"db=%s schema=v%d login=%s require_login=%s movies=%d watched=%d categories=%d\n",
					status.DBPath,
					status.SchemaVersion,
					login,
					boolToState(status.RequireLogin, "yes", "no"),
					status.Movies,
					status.Watched,
					status.Categories,
				)
				return err
			})
		},
	}
}

func newDoctorCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the config, database and saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("doctor does not accept positional arguments")
			}

			health := collectHealth(cmd.Context(), deps)
			if deps.globals.JSON {
				if err := printJSON(deps.out, map[string]any{"checks": health.checks}); err != nil {
					return mapCommandError(err)
				}
			} else if !deps.globals.Quiet {
				for _, check := range health.checks {
					state := "ok"
					if !check.OK {
						state = "fail"
					}
					if _, err := fmt.Fprintf(deps.out, "%s: %s (%s)\n", check.Name, state, check.Message); err != nil {
						return mapCommandError(err)
					}
				}
			}

			if health.cfgErr != nil {
				return mapCommandError(health.cfgErr)
			}
			for _, check := range health.checks {
				if !check.OK {
					return asExitError(ExitCodeGeneric, fmt.Errorf("doctor: one or more checks failed"))
				}
			}
			return nil
		},
	}
}

type healthReport struct {
	cfg      config.Config
	cfgErr   error
	checks   []debugpkg.Check
	database map[string]any
}

// collectHealth runs the doctor checks without needing a working database,
// so a broken setup still produces a report.
func collectHealth(ctx context.Context, deps commandDeps) healthReport {
	if ctx == nil {
		ctx = context.Background()
	}
	health := healthReport{}

	cfg, report, err := loadConfigFn(buildLoadOptions(deps.globals))
	if err != nil {
		health.cfgErr = err
		health.checks = append(health.checks, debugpkg.Check{Name: "config", OK: false, Message: err.Error()})
		return health
	}
	health.cfg = cfg
	source := "defaults"
	if report.ConfigFile != "" {
		source = report.ConfigFile
	}
	health.checks = append(health.checks, debugpkg.Check{Name: "config", OK: true, Message: source})
	health.checks = append(health.checks, checkDatabase(ctx, cfg, &health))
	health.checks = append(health.checks, checkSessionFile(cfg.SessionFilePath()))
	return health
}

func checkDatabase(ctx context.Context, cfg config.Config, health *healthReport) debugpkg.Check {
	store, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return debugpkg.Check{Name: "database", OK: false, Message: err.Error()}
	}
	defer store.Close()

	version, err := store.SchemaVersion()
	if err != nil {
		return debugpkg.Check{Name: "database", OK: false, Message: err.Error()}
	}
	if version != storage.CurrentSchemaVersion() {
		return debugpkg.Check{
			Name:    "database",
			OK:      false,
			Message: fmt.Sprintf("schema v%d, expected v%d", version, storage.CurrentSchemaVersion()),
		}
	}

	users, err := store.Users.List(ctx)
	if err != nil {
		return debugpkg.Check{Name: "database", OK: false, Message: err.Error()}
	}
	categories, err := store.Categories.List(ctx)
	if err != nil {
		return debugpkg.Check{Name: "database", OK: false, Message: err.Error()}
	}
	movies, err := store.Movies.List(ctx, storage.MovieFilter{})
	if err != nil {
		return debugpkg.Check{Name: "database", OK: false, Message: err.Error()}
	}
	health.database = map[string]any{
		"schema_version": version,
		"users":          len(users),
		"categories":     len(categories),
		"movies":         len(movies),
	}
	return debugpkg.Check{
		Name:    "database",
		OK:      true,
		Message: fmt.Sprintf("%s (schema v%d)", cfg.Storage.Path, version),
	}
}

func checkSessionFile(path string) debugpkg.Check {
	mode, exists, err := sessionFileMode(path)
	switch {
	case err != nil:
		return debugpkg.Check{Name: "session", OK: false, Message: err.Error()}
	case !exists:
		return debugpkg.Check{Name: "session", OK: true, Message: "not logged in"}
	case mode&0o077 != 0:
		return debugpkg.Check{
			Name:    "session",
			OK:      false,
			Message: fmt.Sprintf("%s is readable by others (mode %04o)", path, mode),
		}
	default:
		return debugpkg.Check{Name: "session", OK: true, Message: path}
	}
}
