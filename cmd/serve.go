package cmd

import (
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"zohomcp/internal/config"
	"zohomcp/internal/tools"
	"zohomcp/pkg/logging"
)

var (
	serveConfigPath string
	serveDebug      bool
	serveNoBrowser  bool
)

// serveCmd starts the MCP server on stdio. This is the command MCP clients
// configure as the server binary.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Zoho CRM MCP server on stdio",
	Long: `Starts the MCP server that exposes Zoho CRM tools over stdio.

The server speaks the Model Context Protocol on stdout, so all logging goes
to stderr. Tokens obtained with 'zohomcp auth login' are picked up
automatically, including while the server is running.

Typical MCP client configuration:

  {
    "mcpServers": {
      "zoho-crm": {
        "command": "zohomcp",
        "args": ["serve"],
        "env": {
          "ZOHO_CLIENT_ID": "...",
          "ZOHO_CLIENT_SECRET": "..."
        }
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := buildStack(serveConfigPath)
	if err != nil {
		return err
	}

	level := logging.ParseLevel(st.config.LogLevel)
	if serveDebug {
		level = logging.LevelDebug
	}
	logging.Init(level, os.Stderr)

	// Pick up tokens written by 'zohomcp auth login' while running.
	if err := st.store.Watch(); err != nil {
		logging.Warn("serve", "Token file watching unavailable: %v", err)
	}
	defer st.store.Close()

	provider := tools.NewProvider(st.crm, st.flow, !serveNoBrowser)

	mcpServer := server.NewMCPServer(
		"zohomcp",
		rootCmd.Version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
	)
	provider.Register(mcpServer)

	logging.Info("serve", "Starting Zoho CRM MCP server on stdio (version %s)", rootCmd.Version)
	return server.ServeStdio(mcpServer)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveConfigPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&serveNoBrowser, "no-browser", false, "Never open a browser from the authenticate_zoho tool")
}
