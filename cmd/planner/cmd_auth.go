package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize Google Calendar access",
	Long: `Run the OAuth consent flow for Google Calendar and store the token.

Download OAuth client credentials ("Desktop app") from the Google Cloud
console and point PLANNER_GOOGLE_CREDENTIALS at them. The token is written
to PLANNER_GOOGLE_TOKEN and refreshed automatically afterwards.
`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	if _, err := authConfig().Authorize(cmd.Context(), cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("authorize: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", cfg.TokenFile)
	return nil
}
