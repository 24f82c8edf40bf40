package cli

import (
	"fmt"

	"github.com/neilberkman/wbaccel/internal/core/acceleration"
	"github.com/neilberkman/wbaccel/internal/core/db"
	"github.com/neilberkman/wbaccel/internal/interface/tui"
	"github.com/spf13/cobra"
)

var accelerateNow bool

var enableCmd = &cobra.Command{
	Use:   "enable <workbook-path> [sheet]",
	Short: "Enable Workbook Acceleration for a workbook or one of its sheets",
	Long: `Enable Workbook Acceleration for the workbook at the given project path.
No sheet means all sheets.

Examples:
  wbaccel enable "Finance/Sales"
  wbaccel enable "Finance/Quarterly/Sales" "Overview" --accelerate-now
  wbaccel enable "Finance/Sales" -s https://tableau.example.com --site finance`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccelerate(cmd, args, true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <workbook-path> [sheet]",
	Short: "Disable Workbook Acceleration for a workbook or one of its sheets",
	Long: `Disable Workbook Acceleration for the workbook at the given project path.
No sheet means all sheets.

Examples:
  wbaccel disable "Finance/Sales"
  wbaccel disable "Finance/Sales" "Overview"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAccelerate(cmd, args, false)
	},
}

func init() {
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	enableCmd.Flags().BoolVar(&accelerateNow, "accelerate-now", false, "Create Workbook Acceleration Views immediately")
}

func runAccelerate(cmd *cobra.Command, args []string, enable bool) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	req := acceleration.Request{
		Path:          args[0],
		Enable:        enable,
		AccelerateNow: enable && accelerateNow,
	}
	if len(args) > 1 {
		req.Sheet = args[1]
	}

	client, err := e.connect(cmd)
	if err != nil {
		return err
	}

	// History is best-effort; an unwritable database never blocks an update
	var recorder acceleration.Recorder
	history, err := db.New(e.cfg.HistoryDB)
	if err != nil {
		e.logger.Warn().Err(err).Str("path", e.cfg.HistoryDB).Msg("change history unavailable")
	} else {
		defer func() {
			_ = history.Close()
		}()
		recorder = history
	}

	spin := tui.NewSpinner(fmt.Sprintf("Updating %s", req.Path)).Start()
	res, err := acceleration.NewUpdater(client, recorder, e.logger).WithUser(e.manager.UserID()).Apply(cmd.Context(), req)
	spin.Stop()
	if err != nil {
		return err
	}

	msg, err := acceleration.RenderResult(e.cfg.ResultTemplate, req, res)
	if err != nil {
		e.logger.Warn().Err(err).Msg("falling back to default result message")
		msg = "Workbook update succeeded."
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.SuccessStyle.Render(msg))
	return nil
}
