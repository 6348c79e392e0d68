package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/uvyne-rop/movie-watchlist/internal/app"
	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

func newUserCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User accounts",
	}
	cmd.AddCommand(
		newUserRegisterCommand(deps),
		newUserListCommand(deps),
		newUserRemoveCommand(deps),
	)
	return cmd
}

func newUserRegisterCommand(deps commandDeps) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create a user account",
		Example: "  watchlist user register alice\n" +
			"  printf 'secret\\n' | watchlist user register alice --password-stdin",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("user register requires exactly one username")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, passwordStdin, true)
			if err != nil {
				return err
			}
			defer password.Destroy()

			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				user, err := rt.users.Register(ctx, app.RegisterUserRequest{
					Username: args[0],
					Password: password.Bytes(),
				})
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					return printJSON(deps.out, toUserView(*user))
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err = fmt.Fprintf(deps.out, "user registered: %s (id %d)\n", user.Username, user.ID)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newUserListCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("user ls does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				users, err := rt.users.List(ctx)
				if err != nil {
					return err
				}
				if deps.globals.JSON {
					views := make([]userView, 0, len(users))
					for _, user := range users {
						views = append(views, toUserView(user))
					}
					return printJSON(deps.out, views)
				}
				if deps.globals.Quiet {
					return nil
				}
				for _, user := range users {
					if _, err := fmt.Fprintf(deps.out, "%d %s\n", user.ID, user.Username); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newUserRemoveCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <user-id>",
		Short: "Delete a user with all of their movies and reviews",
		Args:  exactlyOneID("user", "user rm"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := parseID("user", args[0])
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				removed, err := rt.users.Delete(ctx, id)
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
				}
				if rt.actor != nil && rt.actor.ID == id {
					if err := removeSessionToken(rt.sessionPath); err != nil {
						return err
					}
				}
				return printRemoved(deps, "user", id)
			})
		},
	}
}

func newLoginCommand(deps commandDeps) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and remember the session for later commands",
		Example: "  watchlist login alice\n" +
			"  printf 'secret\\n' | watchlist login alice --password-stdin",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageErrorf("login requires exactly one username")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, passwordStdin, false)
			if err != nil {
				return err
			}
			defer password.Destroy()

			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				session, user, err := rt.users.Login(ctx, args[0], password.Bytes())
				if err != nil {
					return err
				}
				if err := writeSessionToken(rt.sessionPath, session.Token); err != nil {
					return err
				}

				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{
						"user":       toUserView(*user),
						"expires_at": session.ExpiresAt,
					})
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err = fmt.Fprintf(
					deps.out,
					"logged in as %s (session expires %s)\n",
					user.Username,
					session.ExpiresAt.Local().Format(time.RFC1123),
				)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

func newLogoutCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("logout does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				token, err := readSessionToken(rt.sessionPath)
				if err != nil {
					return err
				}
				ended, err := rt.users.Logout(ctx, token)
				if err != nil {
					return err
				}
				if err := removeSessionToken(rt.sessionPath); err != nil {
					return err
				}
				if deps.globals.Quiet {
					return nil
				}
				if deps.globals.JSON {
					return printJSON(deps.out, map[string]any{"logged_out": ended})
				}
				return outputValue(deps.out, false, boolToState(ended, "logged out", "not logged in"))
			})
		},
	}
}

func newWhoamiCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("whoami does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, rt *appRuntime) error {
				if rt.actor == nil {
					return fmt.Errorf("whoami: %w", app.ErrAuthRequired)
				}
				if deps.globals.JSON {
					return printJSON(deps.out, toUserView(*rt.actor))
				}
				if deps.globals.Quiet {
					return nil
				}
				_, err := fmt.Fprintf(deps.out, "%s (id %d)\n", rt.actor.Username, rt.actor.ID)
				return err
			})
		},
	}
}

func printRemoved(deps commandDeps, kind string, id int64) error {
	if deps.globals.JSON {
		return printJSON(deps.out, map[string]any{"deleted": id, "kind": kind})
	}
	if deps.globals.Quiet {
		return nil
	}
	_, err := fmt.Fprintf(deps.out, "%s removed: %d\n", kind, id)
	return err
}
