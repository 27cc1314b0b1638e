package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// motoadmin login
func newLoginCmd(app *cli) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as the portal admin",
		Long:  "Exchanges the admin password for an access token. The password is taken from --password, $MOTOADMIN_PASSWORD or stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("MOTOADMIN_PASSWORD")
			}
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				p, err := readLine(cmd.InOrStdin())
				if err != nil {
					return errors.New("no password given")
				}
				password = p
			}

			st, err := app.kern.Auth.Login(cmd.Context(), password)
			if err != nil {
				return err
			}
			if st.ExpiresAt.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in until %s.\n", st.ExpiresAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	return cmd
}

// motoadmin logout
func newLogoutCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the admin session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.kern.Auth.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

// motoadmin whoami
func newWhoamiCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			st, ok := app.kern.Sessions.Current(ctx)
			switch {
			case !ok:
				fmt.Fprintln(out, "Not logged in.")
			case !app.kern.Sessions.Authenticated(ctx):
				fmt.Fprintf(out, "Session expired at %s.\n", st.ExpiresAt.Local().Format(time.DateTime))
			case st.ExpiresAt.IsZero():
				fmt.Fprintf(out, "Logged in as admin since %s.\n", st.StartedAt.Local().Format(time.DateTime))
			default:
				fmt.Fprintf(out, "Logged in as admin, expires in %s.\n", time.Until(st.ExpiresAt).Round(time.Minute))
			}
			return nil
		},
	}
}
