package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/nt-hours/internal/gauth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in to Google for Sheets and Drive access",
	Args:  cobra.NoArgs,
	RunE:  runAuth,
}

func runAuth(cmd *cobra.Command, args []string) error {
	if cfg.Google.ServiceAccountFile != "" {
		fmt.Println("A service account is configured; no sign-in needed.")
		return nil
	}
	if err := gauth.Login(cmd.Context(), googleOptions(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Authentication failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Signed in. Token stored under ~/.nthours/auth/.")
	return nil
}
