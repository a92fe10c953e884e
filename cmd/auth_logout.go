package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutLocalOnly bool

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the Zoho CRM authorization and clear stored tokens",
	Long: `Revoke the Zoho CRM refresh token at the provider and remove the
locally stored tokens. Local state is cleared even if the provider side
revocation fails.

Examples:
  zohomcp auth logout           # Revoke and clear tokens
  zohomcp auth logout --local   # Only clear local tokens`,
	RunE: runAuthLogout,
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	st, err := buildStack(authConfigPath)
	if err != nil {
		return err
	}

	if logoutLocalOnly {
		if err := st.store.Clear(); err != nil {
			return fmt.Errorf("failed to clear stored tokens: %w", err)
		}
		authPrintln("Cleared stored tokens.")
		return nil
	}

	if err := st.flow.Revoke(cmd.Context()); err != nil {
		return fmt.Errorf("failed to revoke authorization: %w", err)
	}
	authPrintln("Authorization revoked and stored tokens cleared.")
	return nil
}

func init() {
	authLogoutCmd.Flags().BoolVar(&logoutLocalOnly, "local", false, "Clear local tokens without revoking at the provider")
}
