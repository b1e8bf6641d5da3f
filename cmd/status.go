package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/nt-hours/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last run of every source",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	now := time.Now()

	base, err := storage.BaseDir()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	for _, src := range cfg.Sources {
		last, err := storage.LastRun(base, src.Name, now)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Printf("%s (%s via %s → %s)\n", src.Name, src.Kind, src.Fetch, src.Table)
		if last == nil {
			fmt.Println("  No runs in the last 7 days.")
			continue
		}
		state := "ok"
		if last.Error != "" {
			state = "failed: " + last.Error
		}
		fmt.Printf("  Last run: %s (%s ago), %s\n",
			last.Started.Format("2006-01-02 15:04"), formatElapsed(int64(now.Sub(last.Started).Seconds())), state)
		fmt.Printf("  %d merged, %d published, %d archived\n", last.Merged, last.Published, last.Archived)
	}
	return nil
}
