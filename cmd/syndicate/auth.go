package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/scamshield/syndicate/pkg/store"
	"github.com/scamshield/syndicate/pkg/ui"
)

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("login needs an interactive terminal")
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			u, err := ui.RunLogin(cmd.Context(), st)
			if err != nil {
				return err
			}
			a.log.Infow("Signed in", "user", u.Username, "role", u.Role)
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", u.Name, u.Role)
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			if _, err := st.Logout(ctx); err != nil {
				return err
			}
			if err := st.ClearToken(ctx); err != nil {
				return err
			}
			a.log.Infow("Signed out")
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

// sessionUser names the signed-in user for logs and status output.
func sessionUser(u *store.User) string {
	if u == nil {
		return "(signed out)"
	}
	return u.Username
}
