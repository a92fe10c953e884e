package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// authLoginCmd represents the auth login command
var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with Zoho CRM",
	Long: `Authenticate with Zoho CRM using the browser based OAuth flow.

This command opens a browser for the Zoho consent screen, captures the
redirect on a local callback server, exchanges the authorization code for
tokens, and stores them for the MCP server to use.

A server started with 'zohomcp serve' picks up the new token automatically.

Examples:
  zohomcp auth login            # Run the OAuth flow
  zohomcp auth login --quiet    # Only print errors`,
	RunE: runAuthLogin,
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	st, err := buildStack(authConfigPath)
	if err != nil {
		return err
	}

	// Interactive session, so the authorization URL belongs on stdout.
	st.flow.SetOutput(cmd.OutOrStdout())

	record, err := st.flow.Authorize(cmd.Context())
	if err != nil {
		return err
	}

	authPrint("%s Authenticated with Zoho CRM.\n", text.FgGreen.Sprint("✓"))
	authPrint("  Token expires %s\n", formatExpiryWithDirection(record.ExpiresAt))

	// Verify the session with a real API call before declaring success.
	var s *spinner.Spinner
	if !authQuiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Verifying access..."
		s.Start()
	}

	raw, err := st.crm.Get(cmd.Context(), "users", url.Values{"type": {"CurrentUser"}})
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return fmt.Errorf("token stored but verification call failed: %w", err)
	}

	var payload struct {
		Users []struct {
			FullName string `json:"full_name"`
			Email    string `json:"email"`
		} `json:"users"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.Users) > 0 {
		authPrint("  Signed in as %s (%s)\n", payload.Users[0].FullName, payload.Users[0].Email)
	}
	return nil
}
