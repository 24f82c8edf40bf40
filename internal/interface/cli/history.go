package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
	"github.com/neilberkman/wbaccel/internal/core/db"
	"github.com/neilberkman/wbaccel/internal/interface/tui"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"
)

var (
	historyLimit    int
	historySince    string
	historyWorkbook string
	historyStats    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded acceleration changes",
	Long: `List the enable/disable commands run from this machine, newest first.

Examples:
  wbaccel history
  wbaccel history --since "2 weeks ago"
  wbaccel history --since 2026-01-01 --workbook Finance/
  wbaccel history --stats`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of changes to display")
	historyCmd.Flags().StringVar(&historySince, "since", "", "Only changes after this date (e.g. yesterday, \"3 days ago\", 2026-01-01)")
	historyCmd.Flags().StringVar(&historyWorkbook, "workbook", "", "Filter by workbook path substring")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "Show history statistics instead of changes")
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	database, err := db.New(e.cfg.HistoryDB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = database.Close()
	}()

	out := cmd.OutOrStdout()
	if historyStats {
		stats, err := database.GetStats()
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}
		printStats(out, stats)
		return nil
	}

	filter := db.ChangeFilter{WorkbookPath: historyWorkbook, Limit: historyLimit}
	if historySince != "" {
		since, ok := parseDate(historySince, time.Now())
		if !ok {
			return fmt.Errorf("could not understand --since %q", historySince)
		}
		filter.Since = since
	}

	changes, err := database.ListChanges(filter)
	if err != nil {
		return fmt.Errorf("failed to list changes: %w", err)
	}

	if len(changes) == 0 {
		fmt.Fprintln(out, "No changes recorded.")
		return nil
	}
	for _, c := range changes {
		printChange(out, c)
	}
	return nil
}

const (
	targetWidth = 60
	errorWidth  = 72
)

func printChange(out io.Writer, c db.Change) {
	outcome := tui.SuccessStyle.Render("ok  ")
	if !c.Succeeded {
		outcome = tui.FailureStyle.Render("fail")
	}

	target := c.WorkbookPath
	if c.Sheet != "" {
		target += " [" + c.Sheet + "]"
	}
	action := c.Action
	if c.AccelerateNow {
		action += " (now)"
	}

	fmt.Fprintf(out, "%s %-14s %-13s %s\n", outcome, humanize.Time(c.CreatedAt), action, ansi.Truncate(target, targetWidth, "…"))
	if c.Error != "" {
		for _, line := range strings.Split(wordwrap.String(c.Error, errorWidth), "\n") {
			fmt.Fprintf(out, "     %s\n", tui.MutedStyle.Render(line))
		}
	}
}

func printStats(out io.Writer, s *db.Stats) {
	fmt.Fprintln(out, "Change History")
	fmt.Fprintln(out, "==============")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Total Changes:     %d\n", s.TotalChanges)
	fmt.Fprintf(out, "Failed Changes:    %d\n", s.FailedChanges)
	if s.TotalChanges == 0 {
		return
	}
	fmt.Fprintf(out, "Oldest Change:     %s\n", s.OldestChange.Format("Jan 2, 2006 3:04 PM"))
	fmt.Fprintf(out, "Newest Change:     %s\n", s.NewestChange.Format("Jan 2, 2006 3:04 PM"))
	if s.MostChangedWorkbook != "" {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Most Changed Workbook:\n")
		fmt.Fprintf(out, "  Path:    %s\n", s.MostChangedWorkbook)
		fmt.Fprintf(out, "  Changes: %d\n", s.MostChangedWorkbookHits)
	}
}

// parseDate understands plain dates and natural language ("yesterday",
// "3 days ago", "3-days-ago")
func parseDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)

	formats := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
	}
	for _, format := range formats {
		if t, err := time.ParseInLocation(format, s, now.Location()); err == nil {
			return t, true
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(strings.ReplaceAll(s, "-", " "), now)
	if err != nil || result == nil {
		return time.Time{}, false
	}
	return result.Time, true
}
