package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	debugpkg "github.com/uvyne-rop/movie-watchlist/internal/debug"
)

func newDebugCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "debug",
		Short:   "Diagnostics helpers",
		Example: "  watchlist debug bundle --output ./watchlist-debug.json",
	}
	cmd.AddCommand(newDebugBundleCommand(deps))
	return cmd
}

func newDebugBundleCommand(deps commandDeps) *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Collect sanitized diagnostics into a JSON bundle",
		Example: "  watchlist debug bundle --output ./watchlist-debug.json\n" +
			"  watchlist --json debug bundle --output ./watchlist-debug.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("debug bundle does not accept positional arguments")
			}
			if strings.TrimSpace(outputPath) == "" {
				return usageErrorf("debug bundle requires --output")
			}

			bundle := debugpkg.NewBundle()
			bundle.Version = map[string]any{
				"version":    deps.build.Version,
				"commit":     deps.build.Commit,
				"build_time": deps.build.BuildTime,
			}

			health := collectHealth(cmd.Context(), deps)
			bundle.Checks = health.checks
			bundle.Database = health.database
			if health.cfgErr == nil {
				bundle.Config = map[string]any{
					"db_path":       health.cfg.Storage.Path,
					"require_login": health.cfg.Auth.RequireLogin,
					"session_ttl":   health.cfg.Auth.SessionTTL.String(),
					"log_level":     health.cfg.Logging.Level,
					"log_to_file":   health.cfg.Logging.File != "",
				}
			}
			if !bundle.Healthy() {
				bundle.Notes = append(bundle.Notes, "run `watchlist doctor` for details on failed checks")
			}

			if err := debugpkg.WriteBundle(outputPath, bundle); err != nil {
				return mapCommandError(err)
			}
			if deps.globals.JSON {
				return printJSON(deps.out, map[string]any{"output": outputPath, "healthy": bundle.Healthy()})
			}
			if deps.globals.Quiet {
				return nil
			}
			_, err := fmt.Fprintf(deps.out, "debug bundle written: %s\n", outputPath)
			return mapCommandError(err)
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", "", "Output JSON bundle path")
	return cmd
}
