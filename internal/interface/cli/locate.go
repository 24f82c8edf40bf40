package cli

import (
	"fmt"
	"io"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/wbaccel/internal/core/locator"
	"github.com/neilberkman/wbaccel/internal/core/models"
	"github.com/neilberkman/wbaccel/internal/interface/tui"
	"github.com/spf13/cobra"
)

var locateCopy bool

var locateCmd = &cobra.Command{
	Use:   "locate <workbook-path> [sheet]",
	Short: "Resolve a workbook path without changing anything",
	Long: `Resolve a workbook (and optionally one sheet) by project path and show
its IDs and current Workbook Acceleration state.

Examples:
  wbaccel locate "Finance/Sales"
  wbaccel locate "Finance/Sales" "Overview" --copy`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLocate,
}

func init() {
	rootCmd.AddCommand(locateCmd)
	locateCmd.Flags().BoolVar(&locateCopy, "copy", false, "Copy the workbook ID to the clipboard")
}

func runLocate(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	sheet := ""
	if len(args) > 1 {
		sheet = args[1]
	}

	client, err := e.connect(cmd)
	if err != nil {
		return err
	}

	res, err := locator.Find(cmd.Context(), client, args[0], sheet)
	if err != nil {
		return err
	}

	printLocated(cmd.OutOrStdout(), res)

	if locateCopy {
		if err := clipboard.WriteAll(res.Workbook.ID); err != nil {
			e.logger.Warn().Err(err).Msg("unable to copy to clipboard")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), tui.MutedStyle.Render("Workbook ID copied to clipboard"))
		}
	}
	return nil
}

func printLocated(out io.Writer, res *locator.Result) {
	row := func(k, v string) {
		fmt.Fprintf(out, "%s%s\n", tui.KeyStyle.Render(k), v)
	}

	project := res.ProjectPath
	if project == "" {
		project = "(root)"
	}
	row("Workbook", res.Workbook.Name)
	row("Workbook ID", res.Workbook.ID)
	row("Project", project)
	row("Acceleration", describeAcceleration(res.Workbook.Acceleration))

	for _, v := range res.Workbook.Views {
		row("Sheet", v.Name)
		row("Sheet ID", v.ID)
		row("Acceleration", describeAcceleration(v.Acceleration))
	}
}

func describeAcceleration(a models.AccelerationConfig) string {
	state := "disabled"
	if a.Enabled {
		state = "enabled"
	}
	if a.Status != "" {
		state += ", " + a.Status
	}
	if a.LastUpdatedAt != nil {
		state += ", updated " + humanize.Time(*a.LastUpdatedAt)
	}
	return state
}
