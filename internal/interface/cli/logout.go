package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errLogoutTarget = errors.New("logout signs out of the cached session; do not pass --server or --site")

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out of the current session",
	Long: `Sign out of the cached session and remove the token file.

Logging out when no session is cached is not an error.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("server") || cmd.Flags().Changed("site") {
		return errLogoutTarget
	}

	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	server, signedOut := e.manager.Logout(cmd.Context())
	if !signedOut {
		fmt.Fprintln(cmd.OutOrStdout(), "No existing connection to any server.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed out from current connection to %s successfully\n", server)
	return nil
}
