package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	envFile    string
	configPath string
	logJSONRPC bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "mcp-router",
		Short: "Route plain-language queries to the right MCP server and tool",
		Long: `mcp-router connects to every MCP server listed in its configuration file,
catalogs their tools, resources and prompt templates, and asks a language
model which server, prompt and tool best answer each query.

Servers are read from mcp_config.json unless MCP_CONFIG_PATH or --config
says otherwise. LLM_PREFERENCE selects the openai or anthropic backend.`,
		Example: `  mcp-router                          # Interactive chat (same as "chat")
  mcp-router chat --config servers.yaml
  mcp-router serve --addr :8700 --path /mcp`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Environment file loaded before reading settings")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "Server configuration file (overrides MCP_CONFIG_PATH)")
	root.PersistentFlags().BoolVar(&flags.logJSONRPC, "log-jsonrpc", false, "Log JSON-RPC traffic at debug level")
	root.CompletionOptions.HiddenDefaultCmd = true

	chat := newChatCmd(flags)
	root.AddCommand(chat, newServeCmd(flags))
	root.RunE = chat.RunE
	return root
}
