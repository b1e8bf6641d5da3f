package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/nt-hours/internal/model"
	"github.com/Tiliavir/nt-hours/internal/timecalc"
)

var (
	listToday  bool
	listWeek   bool
	listDate   string
	listSource string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted events",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listToday, "today", false, "Show the day's events (default)")
	listCmd.Flags().BoolVar(&listWeek, "week", false, "Show the week's events")
	listCmd.Flags().StringVar(&listDate, "date", "", "Reference date (YYYY-MM-DD, default today)")
	listCmd.Flags().StringVar(&listSource, "source", "", "Only list this source (default: all)")
}

func runList(cmd *cobra.Command, args []string) error {
	ref := referenceDate(listDate)

	var from, to time.Time
	switch {
	case listWeek:
		from, to = timecalc.WeekRange(ref)
	default:
		// Default to the reference day (covers --today and the bare command).
		from = timecalc.StartOfDay(ref)
		to = timecalc.EndOfDay(ref)
	}

	sets, err := loadEvents(cmd.Context(), listSource)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	for _, set := range sets {
		if len(sets) > 1 {
			fmt.Printf("[%s]\n", set.Source)
		}
		printList(between(set.Events, from, to))
	}
	if len(sets) == 0 {
		fmt.Println("No events found.")
	}
	return nil
}

// printList groups events by date and prints them.
func printList(events []model.Event) {
	if len(events) == 0 {
		fmt.Println("No events found.")
		return
	}

	var currentDay string
	for _, e := range events {
		day := e.Date.Format("2006-01-02")
		if day != currentDay {
			fmt.Println(day)
			currentDay = day
		}

		startStr := e.Clock().Format("15:04")
		endStr := e.Timestamp.Add(time.Duration(e.DurationHrs * float64(time.Hour))).Format("15:04")
		comment := ""
		if e.Comment != "" {
			comment = "  " + e.Comment
		}

		fmt.Printf("%s–%s  %s%s (%s)\n", startStr, endStr, e.Activity, comment, timecalc.FormatHours(e.DurationHrs))
	}
}
