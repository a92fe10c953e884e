package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zohomcp/internal/config"
	"zohomcp/pkg/logging"
)

var (
	authConfigPath string
	authQuiet      bool
	authDebug      bool
)

// authCmd represents the auth command group
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Zoho CRM authentication",
	Long: `Manage the Zoho CRM OAuth session used by the MCP server.

The auth command group provides subcommands to login through the browser
based OAuth flow, inspect the stored token, and log out.

Examples:
  zohomcp auth login     # Run the browser OAuth flow and store tokens
  zohomcp auth status    # Show the stored token and its expiry
  zohomcp auth logout    # Revoke the authorization and clear tokens`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelWarn
		if authDebug {
			level = logging.LevelDebug
		}
		logging.Init(level, os.Stderr)
	},
}

// authPrint prints output only if the --quiet flag is not set.
func authPrint(format string, args ...interface{}) {
	if !authQuiet {
		fmt.Printf(format, args...)
	}
}

// authPrintln prints a line only if the --quiet flag is not set.
func authPrintln(a ...interface{}) {
	if !authQuiet {
		fmt.Println(a...)
	}
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLogoutCmd)

	authCmd.PersistentFlags().StringVar(&authConfigPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	authCmd.PersistentFlags().BoolVarP(&authQuiet, "quiet", "q", false, "Suppress non-essential output")
	authCmd.PersistentFlags().BoolVar(&authDebug, "debug", false, "Enable debug logging")
}
