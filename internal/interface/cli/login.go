package cli

import (
	"fmt"

	"github.com/neilberkman/wbaccel/internal/core/session"
	"github.com/neilberkman/wbaccel/internal/interface/tui"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in, or confirm the cached session is still usable",
	Long: `Sign in to a server and cache the session for later commands.

A cached session for the same server and site is reused. Missing
credentials are prompted for interactively.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	client, err := e.connect(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch e.manager.State() {
	case session.CachedValid:
		fmt.Fprintln(out, tui.SuccessStyle.Render("Reusing existing session on "+client.ServerAddress()))
	default:
		fmt.Fprintln(out, tui.SuccessStyle.Render("Signed in to "+client.ServerAddress()))
	}

	if site, err := client.GetSiteByID(cmd.Context(), client.SiteID()); err == nil {
		fmt.Fprintf(out, "%s%s\n", tui.KeyStyle.Render("Site"), siteLabel(site.Name, site.ContentURL))
	}
	fmt.Fprintf(out, "%s%s\n", tui.KeyStyle.Render("Token file"), e.store.Path())
	return nil
}

func siteLabel(name, contentURL string) string {
	if contentURL == "" {
		return name + " (default)"
	}
	return fmt.Sprintf("%s (%s)", name, contentURL)
}
