package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/nt-hours/internal/model"
)

var (
	exportFormat string
	exportSource string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export persisted events to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json")
	exportCmd.Flags().StringVar(&exportSource, "source", "", "Only export this source (default: all)")
}

func runExport(cmd *cobra.Command, args []string) error {
	sets, err := loadEvents(cmd.Context(), exportSource)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	switch exportFormat {
	case "json":
		data, err := json.MarshalIndent(sets, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "error encoding JSON:", err)
			os.Exit(2)
		}
		fmt.Println(string(data))
	default: // csv
		fmt.Println("source," + joinFields(model.EventFields))
		for _, set := range sets {
			for _, e := range set.Events {
				fmt.Println(csvEscape(set.Source) + "," + joinFields(eventRecord(e)))
			}
		}
	}

	return nil
}

// eventRecord renders e in model.EventFields order.
func eventRecord(e model.Event) []string {
	return []string{
		e.Timestamp.Format(time.DateTime),
		e.Date.Format(time.DateOnly),
		e.Clock().Format(time.TimeOnly),
		e.Activity,
		strconv.FormatFloat(e.DurationHrs, 'f', -1, 64),
		strconv.Itoa(e.Year),
		strconv.Itoa(e.Month),
		strconv.Itoa(e.Week),
		strconv.Itoa(e.DOW),
		e.Comment,
	}
}

func joinFields(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ","
		}
		out += csvEscape(f)
	}
	return out
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	needsQuote := false
	for _, c := range s {
		if c == ',' || c == '"' || c == '\n' || c == '\r' {
			needsQuote = true
			break
		}
	}
	if !needsQuote {
		return s
	}
	// Escape internal double quotes by doubling them.
	escaped := ""
	for _, c := range s {
		if c == '"' {
			escaped += "\""
		}
		escaped += string(c)
	}
	return `"` + escaped + `"`
}
