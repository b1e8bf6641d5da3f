package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/nt-hours/internal/publish"
	"github.com/Tiliavir/nt-hours/internal/sheets"
)

var sheetRange string

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Spreadsheet range utilities",
}

var sheetShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Read a configured range back with typed columns",
	Args:  cobra.NoArgs,
	RunE:  runSheetShow,
}

func init() {
	sheetShowCmd.Flags().StringVar(&sheetRange, "range", "", "Range code from the sheets config")
	_ = sheetShowCmd.MarkFlagRequired("range")
	sheetCmd.AddCommand(sheetShowCmd)
}

func runSheetShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer a.close()

	rc, err := a.sheets.Range(sheetRange)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	tbl, err := publish.Read(ctx, sheets.New(a.google, ""), rc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(tbl.Header, "\t"))
	for _, row := range tbl.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v, rc.DateFormat, rc.TimeFormat, tbl.Header[i], rc.DataTypes)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func formatCell(v any, dateLayout, timeLayout, field string, types map[string]string) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		if types[field] == publish.TypeTime {
			return x.Format(timeLayout)
		}
		return x.Format(dateLayout)
	case float64:
		return fmt.Sprintf("%.2f", x)
	default:
		return fmt.Sprint(x)
	}
}
