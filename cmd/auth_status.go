package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Zoho CRM authentication status",
	Long: `Show the stored Zoho CRM token and its expiry.

This command only inspects local state; it does not call the CRM API.

Examples:
  zohomcp auth status`,
	RunE: runAuthStatus,
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	st, err := buildStack(authConfigPath)
	if err != nil {
		return err
	}

	record, err := st.store.Load()
	if err != nil {
		return err
	}

	fmt.Printf("Zoho CRM (%s)\n", st.config.Zoho.AccountsDomain)
	if record == nil {
		fmt.Printf("  Status:    %s\n", text.FgYellow.Sprint("Not authenticated"))
		fmt.Println("\nTo authenticate, run:")
		fmt.Println("  zohomcp auth login")
		return nil
	}

	if record.Valid(0) {
		fmt.Printf("  Status:    %s\n", text.FgGreen.Sprint("Authenticated"))
	} else {
		fmt.Printf("  Status:    %s\n", text.FgYellow.Sprint("Expired"))
	}
	if !record.ExpiresAt.IsZero() {
		fmt.Printf("  Expires:   %s\n", formatExpiryWithDirection(record.ExpiresAt))
	}
	fmt.Printf("  API host:  %s\n", record.APIDomain)
	if record.Scope != "" {
		fmt.Printf("  Scope:     %s\n", record.Scope)
	}
	if record.RefreshToken != "" {
		fmt.Printf("  Refresh:   %s\n", text.FgGreen.Sprint("Available"))
	} else {
		fmt.Printf("  Refresh:   %s\n", text.FgYellow.Sprint("Not available (re-auth required on expiry)"))
	}
	return nil
}
