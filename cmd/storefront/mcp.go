package main

import (
	"os"

	"github.com/krisalay/storefront-cache/mcpserver"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the storefront MCP server",
	Long:  `Launch an MCP server over stdio that lets AI agents browse the cached catalog and manage the cache.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// stdout carries the protocol, so logs go to stderr.
		a, err := newApp(os.Stderr)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		if _, err := a.connect(cmd.Context()); err != nil {
			return err
		}
		return mcpserver.Serve(a.catalog, version)
	},
}
