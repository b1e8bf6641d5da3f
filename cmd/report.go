package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/nt-hours/internal/timecalc"
)

var (
	reportWeek   bool
	reportFormat string
	reportDate   string
	reportSource string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show hours per activity for an ISO week",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportWeek, "week", false, "Report for the week (default)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Any date in the week to report (YYYY-MM-DD, default today)")
	reportCmd.Flags().StringVar(&reportSource, "source", "", "Only report this source (default: all)")
}

type activityHours struct {
	Activity string  `json:"activity"`
	Hours    float64 `json:"hours"`
}

type weekReport struct {
	Week       string          `json:"week"`
	Activities []activityHours `json:"activities"`
	TotalHours float64         `json:"total_hours"`
}

func runReport(cmd *cobra.Command, args []string) error {
	ref := referenceDate(reportDate)
	from, to := timecalc.WeekRange(ref)

	sets, err := loadEvents(cmd.Context(), reportSource)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Aggregate by activity.
	totals := map[string]float64{}
	for _, set := range sets {
		for _, e := range between(set.Events, from, to) {
			totals[e.Activity] += e.DurationHrs
		}
	}
	rep := weekReport{Week: timecalc.ISOWeekLabel(ref)}
	for _, a := range sortedKeys(totals) {
		rep.Activities = append(rep.Activities, activityHours{Activity: a, Hours: totals[a]})
		rep.TotalHours += totals[a]
	}

	switch reportFormat {
	case "csv":
		fmt.Println("activity,hours")
		for _, a := range rep.Activities {
			fmt.Printf("%s,%.2f\n", csvEscape(a.Activity), a.Hours)
		}
	case "json":
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "error encoding JSON:", err)
			os.Exit(2)
		}
		fmt.Println(string(data))
	default: // md
		fmt.Printf("Week %s\n", rep.Week)
		fmt.Println("--------------------------------")
		for _, a := range rep.Activities {
			fmt.Printf("%-24s%s\n", a.Activity, timecalc.FormatHours(a.Hours))
		}
		fmt.Println("--------------------------------")
		fmt.Printf("%-24s%s\n", "Total", timecalc.FormatHours(rep.TotalHours))
	}

	return nil
}
