package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// GlobalOptions are the persistent flags shared by every subcommand.
type GlobalOptions struct {
	JSON         bool
	Quiet        bool
	DBPath       string
	ConfigPath   string
	EnvFile      string
	LogLevel     string
	RequireLogin *bool
	Timeout      time.Duration
}

type commandDeps struct {
	globals *GlobalOptions
	out     io.Writer
	build   BuildInfo
}

func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	globals := &GlobalOptions{}
	deps := commandDeps{globals: globals, out: out, build: build}

	var requireLogin bool
	cmd := &cobra.Command{
		Use:           "watchlist",
		Short:         "Keep track of the movies you want to watch",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if globals.JSON && globals.Quiet {
				return usageErrorf("--json and --quiet cannot be combined")
			}
			if cmd.Flags().Changed("require-login") {
				value := requireLogin
				globals.RequireLogin = &value
			}
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	flags := cmd.PersistentFlags()
	flags.BoolVar(&globals.JSON, "json", false, "Print machine-readable JSON")
	flags.BoolVar(&globals.Quiet, "quiet", false, "Suppress normal output")
	flags.StringVar(&globals.DBPath, "db", "", "Path to the watchlist database")
	flags.StringVar(&globals.ConfigPath, "config", "", "Path to the TOML config file")
	flags.StringVar(&globals.EnvFile, "env-file", "", "Path to a .env file")
	flags.StringVar(&globals.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.BoolVar(&requireLogin, "require-login", false, "Require a logged-in user for movie and review commands")
	flags.DurationVar(&globals.Timeout, "timeout", 30*time.Second, "Deadline for a single command")

	cmd.AddCommand(
		newInitCommand(deps),
		newUserCommand(deps),
		newLoginCommand(deps),
		newLogoutCommand(deps),
		newWhoamiCommand(deps),
		newCategoryCommand(deps),
		newMovieCommand(deps),
		newReviewCommand(deps),
		newTUICommand(deps),
		newStatusCommand(deps),
		newDoctorCommand(deps),
		newDebugCommand(deps),
		newVersionCommand(deps),
	)
	cmd.InitDefaultCompletionCmd()
	return cmd
}
