package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"zohomcp/internal/oauth"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

// rootCmd represents the base command for the zohomcp application.
var rootCmd = &cobra.Command{
	Use:   "zohomcp",
	Short: "Zoho CRM over the Model Context Protocol",
	Long: `zohomcp exposes Zoho CRM to AI assistants through the Model Context
Protocol. It handles the OAuth browser flow, keeps tokens refreshed, and
serves CRM operations (records, search, metadata, lead conversion) as MCP
tools over stdio.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "zohomcp version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps error types onto semantic exit codes for scripting.
func getExitCode(err error) int {
	if errors.Is(err, oauth.ErrNotAuthenticated) || errors.Is(err, oauth.ErrReauthRequired) {
		return ExitCodeAuthRequired
	}

	var denied *oauth.AuthorizationDeniedError
	if errors.As(err, &denied) {
		return ExitCodeAuthFailed
	}
	var exchange *oauth.TokenExchangeError
	if errors.As(err, &exchange) {
		return ExitCodeAuthFailed
	}
	var bind *oauth.ListenerBindError
	if errors.As(err, &bind) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
