package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/nt-hours/internal/config"
	"github.com/Tiliavir/nt-hours/internal/log"
	"github.com/Tiliavir/nt-hours/internal/storage"
)

var (
	configPath string
	verbose    bool

	// cfg is loaded once before any subcommand runs.
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "nthours",
	Short: "nthours – personal time-tracking pipeline",
	Long: `nthours ingests time-tracking exports (NowThen CSV files and Toggl Track
reports), normalizes them into canonical events, merges them into a relational
event table and republishes a recent window to a Google spreadsheet.
Configuration lives in ~/.nthours/config.json.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.nthours/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sheetCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(authCmd)
}

// loadConfig reads .env files into the environment, then the config file.
// Variables already set in the environment are never overridden.
func loadConfig(cmd *cobra.Command, args []string) error {
	envFiles := []string{".env"}
	if base, err := storage.BaseDir(); err == nil {
		envFiles = append(envFiles, filepath.Join(base, ".env"))
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	level := log.ParseLevel(cfg.LogLevel)
	if verbose {
		level = log.LevelDebug
	}
	log.SetLevel(level)
	return nil
}
