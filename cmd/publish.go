package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/nt-hours/internal/config"
)

var publishSource string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Republish persisted events to the spreadsheet",
	Args:  cobra.NoArgs,
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishSource, "source", "", "Only publish this source (default: all)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	sources, err := selectSources(publishSource)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer a.close()

	failed, err := a.publishAll(ctx, sources)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if failed > 0 {
		os.Exit(2)
	}
	return nil
}

// publishAll republishes every source under the run lock, so it cannot
// overlap an update writing the same ranges. It returns the number of failed
// sources.
func (a *app) publishAll(ctx context.Context, sources []config.SourceConfig) (int, error) {
	l, err := a.lock()
	if err != nil {
		return 0, err
	}
	defer l.Release()

	failed := 0
	for _, src := range sources {
		s, err := a.publisher(src, nil)
		if err == nil {
			var n int
			n, err = s.Publish(ctx)
			if err == nil {
				fmt.Printf("✓ %s: %d rows published to %s\n", src.Name, n, s.Range.Data)
				continue
			}
		}
		fmt.Printf("! %s: %v\n", src.Name, err)
		failed++
	}
	return failed, nil
}
