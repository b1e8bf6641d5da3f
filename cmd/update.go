package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/nt-hours/internal/model"
	"github.com/Tiliavir/nt-hours/internal/timecalc"
)

var (
	updateSource string
	updateDryRun bool
	updateAsOf   string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch, normalize, merge and publish new time entries",
	Args:  cobra.NoArgs,
	RunE:  runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateSource, "source", "", "Only run this source (default: all)")
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "Fetch, normalize and merge without writing or archiving")
	updateCmd.Flags().StringVar(&updateAsOf, "as-of", "", "Reference date for API sources (YYYY-MM-DD, default today)")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	asOf := time.Now()
	if updateAsOf != "" {
		d, err := timecalc.ParseDate("2006-01-02", updateAsOf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --as-of value %q: %v\n", updateAsOf, err)
			os.Exit(1)
		}
		asOf = d
	}

	failed, err := updateAll(cmd.Context(), updateSource, asOf, updateDryRun)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if failed > 0 {
		os.Exit(2)
	}
	return nil
}

// updateAll runs every selected source under the run lock and prints a
// summary per source. It returns the number of failed sources.
func updateAll(ctx context.Context, source string, asOf time.Time, dryRun bool) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sources, err := selectSources(source)
	if err != nil {
		return 0, err
	}

	a, err := openApp(ctx, true)
	if err != nil {
		return 0, err
	}
	defer a.close()

	if !dryRun {
		l, err := a.lock()
		if err != nil {
			return 0, err
		}
		defer l.Release()
	}

	failed := 0
	for _, src := range sources {
		s, err := a.session(src, asOf, dryRun)
		if err != nil {
			fmt.Printf("! %s: %v\n", src.Name, err)
			failed++
			continue
		}
		rep, err := s.Run(ctx)
		printRun(rep)
		if err != nil {
			failed++
		}
	}
	return failed, nil
}

func printRun(r model.RunReport) {
	dryTag := ""
	if r.DryRun {
		dryTag = " [dry-run]"
	}
	fmt.Printf("%s%s (%s)\n", r.Source, dryTag, formatElapsed(int64(r.Finished.Sub(r.Started).Seconds())))
	for _, t := range r.Tables {
		if t.Error != "" {
			fmt.Printf("  ! %s: %s\n", t.Name, t.Error)
			continue
		}
		fmt.Printf("  ✓ %s: %d events\n", t.Name, t.Events)
	}
	fmt.Printf("  %d incoming, %d persisted, %d merged", r.Incoming, r.Persisted, r.Merged)
	if r.Changed {
		fmt.Print(" (changed)")
	}
	fmt.Println()
	if !r.DryRun {
		fmt.Printf("  %d rows published, %d inputs archived\n", r.Published, r.Archived)
	}
	if r.Error != "" {
		fmt.Printf("  ! Error: %s\n", r.Error)
	}
}

func formatElapsed(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
