package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/wbaccel/internal/interface/tui"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cached session",
	Long: `Show the cached session: server, site, user, and whether the server
still accepts it. An expired session is removed.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	rec, ok := e.store.Load()
	if !ok {
		fmt.Fprintln(out, "No existing connection to any server.")
		return nil
	}

	row := func(k, v string) {
		fmt.Fprintf(out, "%s%s\n", tui.KeyStyle.Render(k), v)
	}

	row("Server", rec.ServerURL)
	row("User ID", rec.UserID)
	if info, err := os.Stat(e.store.Path()); err == nil {
		row("Signed in", humanize.Time(info.ModTime()))
	}
	if rec.TLSCertPath != "" {
		row("Certificate", rec.TLSCertPath)
	}

	client, _, alive := e.manager.Current(cmd.Context())
	if !alive {
		row("Session", tui.FailureStyle.Render("expired"))
		return nil
	}
	row("Session", tui.SuccessStyle.Render("active"))

	site, err := client.GetSiteByID(cmd.Context(), client.SiteID())
	if err != nil {
		return fmt.Errorf("failed to read site: %w", err)
	}
	row("Site", siteLabel(site.Name, site.ContentURL))

	mode := site.DataAccelerationMode
	if mode == "" {
		mode = "unknown"
	}
	if site.AccelerationDisabled() {
		mode = tui.FailureStyle.Render(mode)
	}
	row("Acceleration", mode)
	return nil
}
