package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/uvyne-rop/movie-watchlist/internal/app"
	"github.com/uvyne-rop/movie-watchlist/internal/config"
)

const defaultInitConfig = `[storage]
path = ""

[auth]
require_login = false
session_ttl = "720h"
argon2_memory_kib = 65536
argon2_iterations = 3

[logging]
level = "warn"
file = ""
max_size_mb = 10
max_files = 5
`

func newInitCommand(deps commandDeps) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and a default config file",
		Example: "  watchlist init\n" +
			"  watchlist --db ./movies.db init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("init does not accept positional arguments")
			}

			loadOpts := buildLoadOptions(deps.globals)
			configPath, err := config.ConfigPath(loadOpts)
			if err != nil {
				return mapCommandError(err)
			}
			wroteConfig, err := writeDefaultConfig(configPath, force)
			if err != nil {
				return mapCommandError(err)
			}

			cfg, _, err := loadConfigFn(loadOpts)
			if err != nil {
				return mapCommandError(fmt.Errorf("load config: %w", err))
			}
			version, err := app.InitStore(cfg.Storage.Path)
			if err != nil {
				return mapCommandError(err)
			}

			if deps.globals.JSON {
				return printJSON(deps.out, map[string]any{
					"initialized":    true,
					"db_path":        cfg.Storage.Path,
					"schema_version": version,
					"config_path":    configPath,
					"config_written": wroteConfig,
				})
			}
			if deps.globals.Quiet {
				return nil
			}

			if _, err := fmt.Fprintf(deps.out, "initialized database: %s (schema v%d)\n", cfg.Storage.Path, version); err != nil {
				return mapCommandError(err)
			}
			state := boolToState(wroteConfig, "wrote config", "kept existing config")
			if _, err := fmt.Fprintf(deps.out, "%s: %s\n", state, configPath); err != nil {
				return mapCommandError(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func writeDefaultConfig(path string, overwrite bool) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, fmt.Errorf("%w: config path is required", app.ErrValidation)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("init: create config directory: %w", err)
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("init: stat config path: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(defaultInitConfig), 0o600); err != nil {
		return false, fmt.Errorf("init: write config: %w", err)
	}
	return true, nil
}
