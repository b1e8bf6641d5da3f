package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/nt-hours/internal/storage"
	"github.com/Tiliavir/nt-hours/internal/timecalc"
)

var (
	runsDays int
	runsJSON bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show the run journal",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsDays, "days", 7, "Number of days to show, including today")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Print the raw run reports as JSON")
}

func runRuns(cmd *cobra.Command, args []string) error {
	if runsDays < 1 {
		fmt.Fprintln(os.Stderr, "--days must be at least 1")
		os.Exit(1)
	}
	now := time.Now()

	base, err := storage.BaseDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	to := timecalc.EndOfDay(now)
	from := timecalc.StartOfDay(now.AddDate(0, 0, -(runsDays - 1)))
	runs, err := storage.LoadRange(base, from, to)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if runsJSON {
		data, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "error encoding JSON:", err)
			os.Exit(2)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}
	for _, r := range runs {
		mark := "✓"
		if r.Error != "" {
			mark = "!"
		}
		took := timecalc.FormatDurationHHMMSS(int64(r.Finished.Sub(r.Started).Seconds()))
		fmt.Printf("%s %s  %-10s %s  %s\n", mark, r.Started.Format("2006-01-02 15:04"), r.Source, took, strings.Join(r.States, " → "))
		if r.Error != "" {
			fmt.Printf("    %s\n", r.Error)
		}
	}
	return nil
}
